package main

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// StartReportScheduler runs the report on a standard 5-field cron expression
// (minute hour day-of-month month day-of-week). Examples: "0 8 * * *" (daily
// 8am), "0 8 * * 1-5" (weekdays 8am). Blocks forever.
func StartReportScheduler(cfg Config, api *slack.Client, db *sql.DB) {
	schedule := strings.TrimSpace(cfg.ScheduleSpec)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Fatalf("Invalid schedule '%s': %v", schedule, err)
	}

	log.Printf("report scheduled (cron: %s)", schedule)
	for {
		now := time.Now()
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("next report at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		time.Sleep(wait)

		code := RunReport(cfg, api, db, time.Now(), false)
		log.Printf("scheduled report run finished code=%d", code)
	}
}
