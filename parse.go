package main

import (
	"regexp"
	"strconv"
	"strings"
)

// Issue line patterns, strictest first: bold count with multiplier glyph,
// bold count with dash, bare count with optional glyph.
var issueLineRes = []*regexp.Regexp{
	regexp.MustCompile(`^(\d+)\.\s*\*\*([0-9,]+)×?\*\*\s*[-–]?\s*(.+)`),
	regexp.MustCompile(`^(\d+)\.\s*\*\*([0-9,]+)\*\*\s*[-–]\s*(.+)`),
	regexp.MustCompile(`^(\d+)\.\s*([0-9,]+)×?\s*[-–]?\s*(.+)`),
}

var (
	issueSectionMarkers = []string{"top issues", "top problems", "top 5", "problems:", "issues:"}
	metricsTokens       = []string{"exception", "request", "dependencies", "p95"}

	ifAvailableRe    = regexp.MustCompile(`(?i)\s*\(if available\):?`)
	actionMarkerRe   = regexp.MustCompile(`(?i)\*\*Action Required:?\*\*|Action Required:?|🚨`)
	hasDigitRe       = regexp.MustCompile(`\d`)
	numberedPrefixRe = regexp.MustCompile(`^\d+\.`)
)

// ParseReport recovers structured fields from report text. The text may come
// from the deterministic composer or from a model-written summary, so every
// extraction is best-effort; callers must check Empty and fall back to
// posting the raw text when nothing was recovered.
func ParseReport(report string) ParsedReport {
	lines := strings.Split(strings.TrimSpace(report), "\n")

	parsed := ParsedReport{
		StatusEmoji: parseStatus(lines),
		Action:      parseAction(lines),
		Issues:      parseIssues(lines),
	}
	parsed.Metrics, parsed.BusinessMetrics = parseMetricLines(lines)
	return parsed
}

func parseStatus(lines []string) string {
	statusLine := ""
	if len(lines) > 0 {
		statusLine = lines[0]
	}
	switch {
	case strings.Contains(statusLine, statusCritical):
		return statusCritical
	case strings.Contains(statusLine, statusHealthy), strings.Contains(statusLine, "🟢"):
		return statusHealthy
	default:
		return statusWarning
	}
}

// parseMetricLines scans every line for both the technical-metrics line and
// the business-metrics line. Both checks run on each line independently; a
// business line appearing after the metrics line (or before it) must still
// be found, so the scan never stops at the first hit.
func parseMetricLines(lines []string) (metrics, business string) {
	for _, line := range lines {
		lower := strings.ToLower(line)

		if strings.Contains(lower, "business") && strings.Contains(lower, "metric") {
			if hasDigitRe.MatchString(line) {
				cleaned := line
				cleaned = strings.ReplaceAll(cleaned, "**Business Metrics**:", "")
				cleaned = strings.ReplaceAll(cleaned, "**Business Metrics:**", "")
				cleaned = strings.ReplaceAll(cleaned, "Business Metrics:", "")
				cleaned = ifAvailableRe.ReplaceAllString(cleaned, "")
				business = strings.TrimSpace(cleaned)
				continue
			}
		}

		if metrics == "" && containsAny(lower, metricsTokens) && hasDigitRe.MatchString(line) {
			cleaned := line
			cleaned = strings.ReplaceAll(cleaned, "**Metrics**:", "")
			cleaned = strings.ReplaceAll(cleaned, "**Metrics:**", "")
			cleaned = strings.ReplaceAll(cleaned, "Metrics:", "")
			metrics = strings.TrimSpace(cleaned)
		}
	}
	return metrics, business
}

func parseIssues(lines []string) []ParsedIssue {
	var issues []ParsedIssue
	inIssues := false
	for _, line := range lines {
		if !inIssues {
			if containsAny(strings.ToLower(line), issueSectionMarkers) {
				inIssues = true
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if issue, ok := matchIssueLine(trimmed); ok {
			issues = append(issues, issue)
			continue
		}
		// A numbered line that matched no pattern is skipped, not a
		// terminator; anything else ends the section once it has content.
		if trimmed != "" && !numberedPrefixRe.MatchString(trimmed) && len(issues) > 0 {
			break
		}
	}
	return issues
}

func matchIssueLine(line string) (ParsedIssue, bool) {
	for _, re := range issueLineRes {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		count, err := strconv.ParseInt(strings.ReplaceAll(m[2], ",", ""), 10, 64)
		if err != nil {
			continue
		}
		return ParsedIssue{Count: count, Description: strings.TrimSpace(m[3])}, true
	}
	return ParsedIssue{}, false
}

func parseAction(lines []string) string {
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), "action required") || strings.Contains(line, "🚨") {
			action := strings.TrimSpace(actionMarkerRe.ReplaceAllString(line, ""))
			if action != "" {
				return action
			}
		}
	}
	return ""
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
