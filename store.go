package main

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// RunRecord is one row of the local run log. The log is an operator
// convenience; store failures never fail a run.
type RunRecord struct {
	ID              string
	StartedAt       time.Time
	DaysBack        int
	StatusEmoji     string
	TotalExceptions int64
	TotalRequests   int64
	InsightsSeconds float64
	RedshiftSeconds float64
	MySQLSeconds    float64
	Outcome         string // "posted", "fallback", or "error"
	Detail          string
}

func NewRunRecord(startedAt time.Time, daysBack int) RunRecord {
	return RunRecord{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		DaysBack:  daysBack,
	}
}

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS report_runs (
		id               TEXT PRIMARY KEY,
		started_at       DATETIME NOT NULL,
		days_back        INTEGER NOT NULL,
		status_emoji     TEXT DEFAULT '',
		total_exceptions INTEGER DEFAULT 0,
		total_requests   INTEGER DEFAULT 0,
		insights_seconds REAL DEFAULT 0,
		redshift_seconds REAL DEFAULT 0,
		mysql_seconds    REAL DEFAULT 0,
		outcome          TEXT DEFAULT '',
		detail           TEXT DEFAULT '',
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_report_runs_started_at ON report_runs(started_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

func InsertRunRecord(db *sql.DB, run RunRecord) error {
	_, err := db.Exec(
		`INSERT INTO report_runs (id, started_at, days_back, status_emoji, total_exceptions, total_requests,
		                          insights_seconds, redshift_seconds, mysql_seconds, outcome, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.DaysBack, run.StatusEmoji, run.TotalExceptions, run.TotalRequests,
		run.InsightsSeconds, run.RedshiftSeconds, run.MySQLSeconds, run.Outcome, run.Detail)
	return err
}

func RecentRunRecords(db *sql.DB, limit int) ([]RunRecord, error) {
	rows, err := db.Query(
		`SELECT id, started_at, days_back, status_emoji, total_exceptions, total_requests,
		        insights_seconds, redshift_seconds, mysql_seconds, outcome, detail
		 FROM report_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.DaysBack, &run.StatusEmoji,
			&run.TotalExceptions, &run.TotalRequests,
			&run.InsightsSeconds, &run.RedshiftSeconds, &run.MySQLSeconds,
			&run.Outcome, &run.Detail); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
