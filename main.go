package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/slack-go/slack"
)

func main() {
	scheduleMode := flag.Bool("schedule", false, "stay resident and run on the configured cron schedule")
	dryRun := flag.Bool("dry-run", false, "print the composed report text without posting")
	history := flag.Int("history", 0, "print the N most recent runs from the run log and exit")
	flag.Parse()

	cfg := LoadConfig()
	ConfigureExternalHTTPClient(cfg.HTTPTimeoutSeconds)

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init run log database: %v", err)
	}
	defer db.Close()

	if *history > 0 {
		printRunHistory(db, *history)
		return
	}

	api := slack.New(cfg.SlackBotToken)

	if *scheduleMode {
		StartReportScheduler(cfg, api, db)
		return
	}

	// os.Exit skips deferred calls, so close the run log explicitly.
	code := RunReport(cfg, api, db, time.Now(), *dryRun)
	db.Close()
	os.Exit(code)
}

func printRunHistory(db *sql.DB, limit int) {
	runs, err := RecentRunRecords(db, limit)
	if err != nil {
		log.Fatalf("Failed to read run log: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return
	}
	for _, run := range runs {
		fmt.Printf("%s  %s  days=%d  %s exceptions=%d requests=%d  outcome=%s %s\n",
			run.StartedAt.Format("2006-01-02 15:04"), run.ID[:8], run.DaysBack,
			run.StatusEmoji, run.TotalExceptions, run.TotalRequests, run.Outcome, run.Detail)
	}
}
