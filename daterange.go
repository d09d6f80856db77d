package main

import (
	"fmt"
	"time"
)

// DateRange is the lookback window for a single run. Both fetch stages and
// the renderer headers consume the same value so the report never shows
// mismatched ranges.
type DateRange struct {
	DaysBack int
	Label    string // "February 27 - March 02, 2026" or "March 01, 2026"
	DaysText string // "Friday, Saturday, Sunday" or a single weekday name
}

// CurrentDateRange applies the weekday policy: on Monday look back 3 days to
// cover the weekend, otherwise 1 day.
func CurrentDateRange(now time.Time) DateRange {
	if now.Weekday() == time.Monday {
		start := now.AddDate(0, 0, -3)
		return DateRange{
			DaysBack: 3,
			Label:    fmt.Sprintf("%s - %s", start.Format("January 02"), now.Format("January 02, 2006")),
			DaysText: "Friday, Saturday, Sunday",
		}
	}
	prev := now.AddDate(0, 0, -1)
	return DateRange{
		DaysBack: 1,
		Label:    prev.Format("January 02, 2006"),
		DaysText: prev.Weekday().String(),
	}
}

// MySQLInterval returns the interval fragment for MySQL queries.
func (r DateRange) MySQLInterval() string {
	return fmt.Sprintf("INTERVAL %d DAY", r.DaysBack)
}

// RedshiftInterval returns the interval fragment for Redshift queries.
func (r DateRange) RedshiftInterval() string {
	return fmt.Sprintf("INTERVAL '%d day'", r.DaysBack)
}
