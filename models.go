package main

import "time"

// MetricSnapshot holds the aggregated telemetry counters for one lookback
// window, built from the query row tagged DataType=Summary.
type MetricSnapshot struct {
	TotalRequests      int64
	FailedRequests     int64
	TotalExceptions    int64
	TotalDependencies  int64
	FailedDependencies int64
	AvgResponseTime    float64 // milliseconds
	P95ResponseTime    float64 // milliseconds
	SuccessRate        float64 // percentage, 100 when no requests
}

// ExceptionGroup is one distinct problem signature. OperationName may be
// empty in the raw rows; the composer recovers it from ProblemID, which is
// formatted "<Type> at <Operation>".
type ExceptionGroup struct {
	ProblemID        string
	Type             string
	OperationName    string
	Count            int64
	SampleMessage    string
	LatestOccurrence time.Time
}

// TimelineBucket is one hour of exception counts.
type TimelineBucket struct {
	Timestamp time.Time
	Count     int64
}

// BusinessMetrics carries counters from the two analytical databases. Nil
// means the source was skipped or failed; zero is a real count.
type BusinessMetrics struct {
	Offers     *int64
	Upsells    *int64
	Heartbeats *int64
}

func (b BusinessMetrics) Empty() bool {
	return b.Offers == nil && b.Upsells == nil && b.Heartbeats == nil
}

// ParsedIssue is one (count, description) pair recovered from a numbered
// issue line.
type ParsedIssue struct {
	Count       int64
	Description string
}

// ParsedReport is the structured form recovered from report text. All fields
// are best-effort; Empty reports a full parse failure.
type ParsedReport struct {
	StatusEmoji     string
	Metrics         string
	BusinessMetrics string
	Issues          []ParsedIssue
	Action          string
}

func (p ParsedReport) Empty() bool {
	return p.Metrics == "" && p.BusinessMetrics == "" && len(p.Issues) == 0
}

// FetchTimings records per-source fetch durations in seconds for the timing
// context line. Zero values are omitted from rendering.
type FetchTimings struct {
	InsightsSeconds float64
	RedshiftSeconds float64
	MySQLSeconds    float64
}

func (t FetchTimings) Any() bool {
	return t.InsightsSeconds > 0 || t.RedshiftSeconds > 0 || t.MySQLSeconds > 0
}

// InsightsResult bundles everything the telemetry fetch produced for one
// run. HasSummary distinguishes an all-zero quiet day from a query that
// returned no rows at all.
type InsightsResult struct {
	Summary    MetricSnapshot
	HasSummary bool
	Groups     []ExceptionGroup
	Timeline   []TimelineBucket
	Range      DateRange
	Elapsed    float64 // seconds
}
