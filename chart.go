package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const (
	issueBarWidth    = 20
	maxChartURLLen   = 2000
	maxChartBuckets  = 24
	maxASCIIBuckets  = 12
	quickChartOrigin = "https://quickchart.io/chart"
)

// IssueBar renders a fixed-width proportional bar for one issue count scaled
// to the batch maximum. A zero or absent maximum yields an all-empty bar.
func IssueBar(count, maxCount int64) string {
	filled := 0
	if maxCount > 0 {
		filled = int(count * issueBarWidth / maxCount)
	}
	if filled > issueBarWidth {
		filled = issueBarWidth
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", issueBarWidth-filled)
}

type chartConfig struct {
	Type    string       `json:"type"`
	Data    chartData    `json:"data"`
	Options chartOptions `json:"options"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type chartDataset struct {
	Label           string  `json:"label"`
	Data            []int64 `json:"data"`
	BackgroundColor string  `json:"backgroundColor"`
	BorderColor     string  `json:"borderColor"`
	BorderWidth     int     `json:"borderWidth"`
}

type chartOptions struct {
	Legend chartLegend `json:"legend"`
	Title  chartTitle  `json:"title"`
}

type chartLegend struct {
	Display bool `json:"display"`
}

type chartTitle struct {
	Display   bool   `json:"display"`
	Text      string `json:"text"`
	FontSize  int    `json:"fontSize"`
	FontColor string `json:"fontColor"`
}

// TimelineChartURL builds a QuickChart image URL for the most recent 24
// hourly buckets. It returns "" when there is no data or when the encoded
// URL would exceed the length Slack reliably accepts, in which case the
// caller should fall back to the text renderer.
func TimelineChartURL(timeline []TimelineBucket) string {
	return timelineChartURLWithLimit(timeline, maxChartURLLen)
}

func timelineChartURLWithLimit(timeline []TimelineBucket, limit int) string {
	recent := recentBuckets(timeline, maxChartBuckets)
	if len(recent) == 0 {
		return ""
	}

	labels := make([]string, 0, len(recent))
	data := make([]int64, 0, len(recent))
	for _, bucket := range recent {
		if bucket.Timestamp.IsZero() {
			continue
		}
		labels = append(labels, bucket.Timestamp.Format("15:04"))
		data = append(data, bucket.Count)
	}
	if len(data) == 0 {
		return ""
	}

	cfg := chartConfig{
		Type: "bar",
		Data: chartData{
			Labels: labels,
			Datasets: []chartDataset{{
				Label:           "Exceptions",
				Data:            data,
				BackgroundColor: "rgba(220,38,38,0.9)",
				BorderColor:     "rgba(220,38,38,1)",
				BorderWidth:     1,
			}},
		},
		Options: chartOptions{
			Legend: chartLegend{Display: false},
			Title: chartTitle{
				Display:   true,
				Text:      "Exception Timeline - Last 24 Hours",
				FontSize:  18,
				FontColor: "#e5e7eb",
			},
		},
	}

	encoded, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	chartURL := fmt.Sprintf("%s?c=%s&w=800&h=400&bkg=%%23111827&devicePixelRatio=2",
		quickChartOrigin, url.QueryEscape(string(encoded)))
	if len(chartURL) > limit {
		return ""
	}
	return chartURL
}

// ASCIITimeline renders the most recent 12 buckets as proportional character
// bars inside a code block. Returns "" when there is nothing to draw.
func ASCIITimeline(timeline []TimelineBucket) string {
	recent := recentBuckets(timeline, maxASCIIBuckets)
	if len(recent) == 0 {
		return ""
	}

	var maxCount int64
	for _, bucket := range recent {
		if bucket.Count > maxCount {
			maxCount = bucket.Count
		}
	}

	lines := []string{"📊 *Exception Timeline (Last 12 Hours)*", "```"}
	drawn := 0
	for _, bucket := range recent {
		if bucket.Timestamp.IsZero() {
			continue
		}
		filled := 0
		if maxCount > 0 {
			filled = int(bucket.Count * issueBarWidth / maxCount)
		}
		lines = append(lines, fmt.Sprintf("%s %s %5d",
			bucket.Timestamp.Format("15:04"), strings.Repeat("█", filled), bucket.Count))
		drawn++
	}
	if drawn == 0 {
		return ""
	}
	lines = append(lines, "```")
	return strings.Join(lines, "\n")
}

// recentBuckets sorts ascending by timestamp and keeps the last n entries.
func recentBuckets(timeline []TimelineBucket, n int) []TimelineBucket {
	sorted := make([]TimelineBucket, len(timeline))
	copy(sorted, timeline)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	if len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}
