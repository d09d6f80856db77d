package main

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Status thresholds on the window's total exception count. Tuning knobs;
// change here, nowhere else.
const (
	warningExceptionThreshold  = 2000
	criticalExceptionThreshold = 5000
)

const (
	statusHealthy  = "✅"
	statusWarning  = "🟡"
	statusCritical = "🔴"
)

const maxReportIssues = 5
const maxSampleMessageLen = 120

var leadingTimestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?Z?\s*[-–:]?\s*`)

// StatusEmoji maps an exception count to the report status glyph.
func StatusEmoji(totalExceptions int64) string {
	switch {
	case totalExceptions > criticalExceptionThreshold:
		return statusCritical
	case totalExceptions > warningExceptionThreshold:
		return statusWarning
	default:
		return statusHealthy
	}
}

// ComposeReport renders the canonical text report. It is a pure function of
// its inputs: identical inputs produce identical output except for the date
// stamp taken from now.
func ComposeReport(title string, snapshot MetricSnapshot, business BusinessMetrics, groups []ExceptionGroup, now time.Time) string {
	topIssues := TopIssues(groups, maxReportIssues)
	emoji := StatusEmoji(snapshot.TotalExceptions)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s - %s\n\n", emoji, title, now.Format("January 02, 2006"))

	fmt.Fprintf(&b, "Metrics: %s exceptions | %s requests | %s dependencies (%s failed) | P95: %dms\n\n",
		formatCount(snapshot.TotalExceptions),
		formatCount(snapshot.TotalRequests),
		formatCount(snapshot.TotalDependencies),
		formatCount(snapshot.FailedDependencies),
		int64(snapshot.P95ResponseTime))

	if !business.Empty() {
		fmt.Fprintf(&b, "Business Metrics: %s offers | %s player heartbeats | %s upsells\n\n",
			formatCount(countOrZero(business.Offers)),
			formatCount(countOrZero(business.Heartbeats)),
			formatCount(countOrZero(business.Upsells)))
	}

	b.WriteString("Top 5 Problems:\n")
	for i, issue := range topIssues {
		b.WriteString(composeIssueLine(i+1, issue))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(composeActionLine(topIssues, snapshot.TotalExceptions))
	b.WriteString("\n")
	return b.String()
}

// TopIssues sorts groups by count descending (stable, preserving source
// order on ties) and keeps at most n.
func TopIssues(groups []ExceptionGroup, n int) []ExceptionGroup {
	sorted := make([]ExceptionGroup, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func composeIssueLine(rank int, issue ExceptionGroup) string {
	errType := issue.Type
	if errType == "" {
		errType = "Unknown"
	}
	operation := ResolveOperation(issue)

	message := cleanSampleMessage(issue.SampleMessage)

	line := fmt.Sprintf("%d. **%s×** %s", rank, formatCount(issue.Count), errType)
	if operation != "" {
		line += " at " + operation
	}
	if message != "" {
		line += " - " + message
	}
	return line
}

// ResolveOperation returns the group's operation name, recovering it from
// the trailing "at <text>" of the problem identifier when the column was
// empty.
func ResolveOperation(issue ExceptionGroup) string {
	if op := strings.TrimSpace(issue.OperationName); op != "" {
		return op
	}
	if idx := strings.LastIndex(issue.ProblemID, " at "); idx >= 0 {
		return strings.TrimSpace(issue.ProblemID[idx+len(" at "):])
	}
	return ""
}

// cleanSampleMessage strips a leading ISO-8601 timestamp and a leading
// error-type prefix, then truncates for display with an ellipsis.
func cleanSampleMessage(message string) string {
	message = strings.TrimSpace(message)
	message = leadingTimestampRe.ReplaceAllString(message, "")

	if _, rest, found := strings.Cut(message, " - "); found {
		message = rest
	} else if _, rest, found := strings.Cut(message, ": "); found {
		message = rest
	}

	runes := []rune(message)
	if len(runes) > maxSampleMessageLen {
		message = string(runes[:maxSampleMessageLen-3]) + "..."
	}
	return message
}

func composeActionLine(topIssues []ExceptionGroup, totalExceptions int64) string {
	if len(topIssues) == 0 {
		return "✅ No major issues detected"
	}
	top := topIssues[0]
	operation := ResolveOperation(top)
	if operation == "" {
		operation = "Unknown"
	}
	percentage := int64(0)
	if totalExceptions > 0 {
		percentage = top.Count * 100 / totalExceptions
	}
	return fmt.Sprintf("🚨 Action Required: Investigate %s - accounts for %d%% of exceptions", operation, percentage)
}

func countOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// formatCount renders n with thousands separators.
func formatCount(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
