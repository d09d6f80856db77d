package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// Value patterns tolerant of thousands separators and K/M/B magnitude
// suffixes. Each metric renders only when its own pattern matched.
var (
	offersValueRe     = regexp.MustCompile(`(?i)([0-9,]+(?:\.[0-9]+)?[KMB]?)\s*offers?`)
	heartbeatsValueRe = regexp.MustCompile(`(?i)([0-9,]+(?:\.[0-9]+)?[KMB]?)\s*player\s*heartbeats?`)
	upsellsValueRe    = regexp.MustCompile(`(?i)([0-9,]+(?:\.[0-9]+)?[KMB]?)\s*upsells?`)

	exceptionsValueRe = regexp.MustCompile(`(?i)([0-9,]+(?:\.[0-9]+)?[KMB]?)\s*exceptions?`)
	requestsValueRe   = regexp.MustCompile(`(?i)([0-9,]+(?:\.[0-9]+)?[KMB]?)\s*requests?`)
	successValueRe    = regexp.MustCompile(`(?i)([0-9,]+(?:\.[0-9]+)?)%\s*success`)
	dependenciesRe    = regexp.MustCompile(`(?i)([0-9,]+(?:\.[0-9]+)?[KMB]?)\s*dependencies`)
	failedDepsRe      = regexp.MustCompile(`(?i)\(([0-9,]+(?:\.[0-9]+)?[KMB]?)\s*failed\)`)
	p95ValueRe        = regexp.MustCompile(`(?i)P95:\s*([0-9,]+(?:\.[0-9]+)?)ms`)
)

// BuildReportBlocks converts a parsed report plus optional timeline and
// timing data into the sectioned Slack payload. Sections with no underlying
// data are omitted entirely. No I/O happens here.
func BuildReportBlocks(title string, parsed ParsedReport, timeline []TimelineBucket, timings FetchTimings, dr DateRange, now time.Time) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, fmt.Sprintf("📊 %s", title), true, false)),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("_%s_", now.Format("January 02, 2006 at 3:04 PM MST")), false, false)),
		slack.NewDividerBlock(),
	}

	blocks = append(blocks, businessBlocks(parsed.BusinessMetrics, dr)...)
	blocks = append(blocks, technicalBlocks(parsed.StatusEmoji, parsed.Metrics, dr)...)
	blocks = append(blocks, timelineBlocks(timeline)...)
	blocks = append(blocks, issueBlocks(parsed.Issues)...)

	if parsed.Action != "" {
		blocks = append(blocks,
			slack.NewDividerBlock(),
			markdownSection(fmt.Sprintf("*⚡ Action Required*\n%s", parsed.Action)))
	}

	blocks = append(blocks, timingBlocks(timings)...)

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType,
			"📈 <https://portal.azure.com|View in Azure Portal> | Generated by insightsbot", false, false)))
	return blocks
}

func businessBlocks(businessMetrics string, dr DateRange) []slack.Block {
	if businessMetrics == "" {
		return nil
	}

	var fields []*slack.TextBlockObject
	if m := offersValueRe.FindStringSubmatch(businessMetrics); m != nil {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*🎁 Offers*\n`%s`", m[1]), false, false))
	}
	if m := heartbeatsValueRe.FindStringSubmatch(businessMetrics); m != nil {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*🎮 Player Heartbeats*\n`%s`", m[1]), false, false))
	}
	if m := upsellsValueRe.FindStringSubmatch(businessMetrics); m != nil {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*💰 Upsells*\n`%s`", m[1]), false, false))
	}
	if len(fields) == 0 {
		return nil
	}

	headerText := "📊 Business Metrics – Daily"
	contextText := "*Data Sources:* Redshift (Offers, Upsells) • MySQL (Player Heartbeats) • Last 24 hours"
	if dr.Label != "" {
		headerText = fmt.Sprintf("📊 Business Metrics – %s", dr.Label)
		contextText = fmt.Sprintf("*Data Sources:* Redshift (Offers, Upsells) • MySQL (Player Heartbeats) • Data from: %s", dr.Label)
	}

	return []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, headerText, true, false)),
		slack.NewSectionBlock(nil, fields, nil),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, contextText, false, false)),
		slack.NewDividerBlock(),
	}
}

func technicalBlocks(statusEmoji, metrics string, dr DateRange) []slack.Block {
	if metrics == "" {
		return nil
	}

	headerText := fmt.Sprintf("%s Application Insights - Health Summary", statusEmoji)
	if dr.Label != "" {
		headerText = fmt.Sprintf("%s Application Insights - %s", statusEmoji, dr.Label)
	}
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, headerText, true, false)),
	}

	var fields []*slack.TextBlockObject
	if m := exceptionsValueRe.FindStringSubmatch(metrics); m != nil {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*🚨 Exceptions*\n`%s`", m[1]), false, false))
	}
	if m := requestsValueRe.FindStringSubmatch(metrics); m != nil {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*📥 Requests*\n`%s`", m[1]), false, false))
	}
	if m := successValueRe.FindStringSubmatch(metrics); m != nil {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*✅ Success Rate*\n`%s%%`", m[1]), false, false))
	}
	if m := dependenciesRe.FindStringSubmatch(metrics); m != nil {
		depsText := m[1]
		if fm := failedDepsRe.FindStringSubmatch(metrics); fm != nil {
			depsText += fmt.Sprintf(" (%s failed)", fm[1])
		}
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*🔗 Dependencies*\n`%s`", depsText), false, false))
	}
	if m := p95ValueRe.FindStringSubmatch(metrics); m != nil {
		fields = append(fields, slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*⚡ P95 Response*\n`%sms`", m[1]), false, false))
	}

	if len(fields) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))
	} else {
		// None of the sub-patterns matched; show the raw line instead.
		blocks = append(blocks, markdownSection(fmt.Sprintf("*📊 Key Metrics*\n`%s`", metrics)))
	}
	return blocks
}

func timelineBlocks(timeline []TimelineBucket) []slack.Block {
	if len(timeline) == 0 {
		return nil
	}

	if chartURL := TimelineChartURL(timeline); chartURL != "" {
		return []slack.Block{
			slack.NewDividerBlock(),
			markdownSection("*📈 Exception Timeline - Last 24 Hours*"),
			slack.NewImageBlock(chartURL, "Exception timeline showing hourly exception counts", "", nil),
		}
	}
	if ascii := ASCIITimeline(timeline); ascii != "" {
		return []slack.Block{
			slack.NewDividerBlock(),
			markdownSection(ascii),
		}
	}
	return nil
}

func issueBlocks(issues []ParsedIssue) []slack.Block {
	if len(issues) == 0 {
		return nil
	}

	var maxCount int64
	for _, issue := range issues {
		if issue.Count > maxCount {
			maxCount = issue.Count
		}
	}

	blocks := []slack.Block{
		slack.NewDividerBlock(),
		markdownSection("*🔥 Top Exception Problems*"),
	}
	for i, issue := range issues {
		if i >= maxReportIssues {
			break
		}
		bar := IssueBar(issue.Count, maxCount)
		text := fmt.Sprintf("*%d. %s× occurrences*\n`%s` _%s_\n```%s```",
			i+1, formatCount(issue.Count), bar, formatCount(issue.Count), issue.Description)
		blocks = append(blocks, markdownSection(text))
	}
	return blocks
}

func timingBlocks(timings FetchTimings) []slack.Block {
	if !timings.Any() {
		return nil
	}

	var parts []string
	if timings.InsightsSeconds > 0 {
		parts = append(parts, fmt.Sprintf("App Insights: %.2fs", timings.InsightsSeconds))
	}
	if timings.RedshiftSeconds > 0 {
		parts = append(parts, fmt.Sprintf("Redshift: %.2fs", timings.RedshiftSeconds))
	}
	if timings.MySQLSeconds > 0 {
		parts = append(parts, fmt.Sprintf("MySQL: %.2fs", timings.MySQLSeconds))
	}

	text := "⏱️ *Fetch Times:* " + strings.Join(parts, " • ")
	return []slack.Block{
		slack.NewDividerBlock(),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, text, false, false)),
	}
}

func markdownSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}
