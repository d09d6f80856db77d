package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/slack-go/slack"
)

// RunReport executes one full report cycle: fetch, compose (or summarize),
// parse, render, deliver. It returns the process exit code: 0 on success or
// when no data was available, 1 on any fetch, parse or delivery failure.
func RunReport(cfg Config, api *slack.Client, db *sql.DB, now time.Time, dryRun bool) int {
	dr := CurrentDateRange(now)
	run := NewRunRecord(now, dr.DaysBack)
	log.Printf("report run id=%s days_back=%d range=%q", run.ID, dr.DaysBack, dr.Label)

	insights, err := FetchInsights(cfg, dr)
	if err != nil {
		log.Printf("insights fetch error: %v", err)
		run.Outcome = "error"
		run.Detail = err.Error()
		recordRun(db, run)
		// Operators still get notified about the failed fetch.
		body := fmt.Sprintf("⚠️ %s\n\nTelemetry fetch failed: %v", cfg.ReportTitle, err)
		if !dryRun {
			if postErr := PostPlainText(api, cfg.SlackChannel, body); postErr != nil {
				log.Printf("error notification post failed: %v", postErr)
			}
		}
		return 1
	}

	if noTelemetryData(insights) {
		log.Printf("no telemetry data for range %q, nothing to report", dr.Label)
		run.Outcome = "posted"
		run.Detail = "no data"
		recordRun(db, run)
		if !dryRun {
			body := fmt.Sprintf("%s %s - no telemetry data for %s", statusHealthy, cfg.ReportTitle, dr.Label)
			if postErr := PostPlainText(api, cfg.SlackChannel, body); postErr != nil {
				log.Printf("no-data notification post failed: %v", postErr)
			}
		}
		return 0
	}

	business, timings := FetchBusinessMetrics(cfg, dr)
	timings.InsightsSeconds = insights.Elapsed

	reportText := buildReportText(cfg, insights, business, now)

	if dryRun {
		fmt.Print(reportText)
		return 0
	}

	parsed := ParseReport(reportText)
	run.StatusEmoji = parsed.StatusEmoji
	run.TotalExceptions = insights.Summary.TotalExceptions
	run.TotalRequests = insights.Summary.TotalRequests
	run.InsightsSeconds = timings.InsightsSeconds
	run.RedshiftSeconds = timings.RedshiftSeconds
	run.MySQLSeconds = timings.MySQLSeconds

	if parsed.Empty() {
		log.Printf("report parse recovered no structured fields, posting raw text")
		run.Outcome = "fallback"
		recordRun(db, run)
		body := fmt.Sprintf("⚠️ %s\n\n%s", cfg.ReportTitle, reportText)
		if err := PostPlainText(api, cfg.SlackChannel, body); err != nil {
			log.Printf("fallback post error: %v", err)
		}
		return 1
	}

	blocks := BuildReportBlocks(cfg.ReportTitle, parsed, insights.Timeline, timings, dr, now)
	fallback := fmt.Sprintf("%s %s - Daily Summary", parsed.StatusEmoji, cfg.ReportTitle)
	if err := PostReportBlocks(api, cfg.SlackChannel, fallback, blocks); err != nil {
		log.Printf("delivery error: %v", err)
		run.Outcome = "error"
		run.Detail = err.Error()
		recordRun(db, run)
		return 1
	}

	run.Outcome = "posted"
	recordRun(db, run)
	return 0
}

// buildReportText prefers the model-written summary when enabled, falling
// back to the deterministic composer on any LLM failure.
func buildReportText(cfg Config, insights *InsightsResult, business BusinessMetrics, now time.Time) string {
	if cfg.LLMEnabled {
		text, usage, err := SummarizeInsights(cfg, insights, business)
		if err == nil && text != "" {
			log.Printf("report text from llm tokens=%d", usage.TotalTokens())
			return text
		}
		log.Printf("llm summarize failed, using composer: %v", err)
	}
	return ComposeReport(cfg.ReportTitle, insights.Summary, business, insights.Groups, now)
}

func noTelemetryData(insights *InsightsResult) bool {
	return !insights.HasSummary && len(insights.Groups) == 0 && len(insights.Timeline) == 0
}

func recordRun(db *sql.DB, run RunRecord) {
	if db == nil {
		return
	}
	if err := InsertRunRecord(db, run); err != nil {
		log.Printf("run log insert error: %v", err)
	}
}
