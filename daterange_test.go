package main

import (
	"testing"
	"time"
)

func TestCurrentDateRangeMonday(t *testing.T) {
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) // a Monday
	dr := CurrentDateRange(monday)

	if dr.DaysBack != 3 {
		t.Errorf("DaysBack = %d, want 3", dr.DaysBack)
	}
	if dr.Label != "February 27 - March 02, 2026" {
		t.Errorf("Label = %q", dr.Label)
	}
	if dr.DaysText != "Friday, Saturday, Sunday" {
		t.Errorf("DaysText = %q", dr.DaysText)
	}
}

func TestCurrentDateRangeOtherDays(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		label    string
		daysText string
	}{
		{"tuesday", time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), "March 02, 2026", "Monday"},
		{"saturday", time.Date(2026, 3, 7, 8, 0, 0, 0, time.UTC), "March 06, 2026", "Friday"},
		{"sunday", time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC), "March 07, 2026", "Saturday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dr := CurrentDateRange(tt.now)
			if dr.DaysBack != 1 {
				t.Errorf("DaysBack = %d, want 1", dr.DaysBack)
			}
			if dr.Label != tt.label {
				t.Errorf("Label = %q, want %q", dr.Label, tt.label)
			}
			if dr.DaysText != tt.daysText {
				t.Errorf("DaysText = %q, want %q", dr.DaysText, tt.daysText)
			}
		})
	}
}

func TestDateRangeSQLIntervals(t *testing.T) {
	dr := DateRange{DaysBack: 3}
	if got := dr.MySQLInterval(); got != "INTERVAL 3 DAY" {
		t.Errorf("MySQLInterval = %q", got)
	}
	if got := dr.RedshiftInterval(); got != "INTERVAL '3 day'" {
		t.Errorf("RedshiftInterval = %q", got)
	}
}
