package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"
)

type rewriteHostTransport struct {
	host   string
	target *url.URL
	base   http.RoundTripper
}

func (t *rewriteHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if clone.URL.Host == t.host {
		clone.URL.Scheme = t.target.Scheme
		clone.URL.Host = t.target.Host
		clone.Host = t.target.Host
	}
	return t.base.RoundTrip(clone)
}

func withMockInsightsAPI(t *testing.T, handler http.HandlerFunc) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	targetURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse mock insights URL failed: %v", err)
	}
	orig := externalHTTPClient.Transport
	externalHTTPClient.Transport = &rewriteHostTransport{
		host:   "api.applicationinsights.io",
		target: targetURL,
		base:   http.DefaultTransport,
	}
	t.Cleanup(func() {
		externalHTTPClient.Transport = orig
	})
}

// withMockAnthropicAPI serves a fixed messages response in place of the real
// model endpoint.
func withMockAnthropicAPI(t *testing.T, summaryText string) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/messages") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       defaultAnthropicModel,
			"stop_reason": "end_turn",
			"content": []map[string]any{
				{"type": "text", "text": summaryText},
			},
			"usage": map[string]any{
				"input_tokens":  42,
				"output_tokens": 17,
			},
		})
	}))
	t.Cleanup(server.Close)

	targetURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse mock anthropic URL failed: %v", err)
	}
	orig := http.DefaultTransport
	http.DefaultTransport = &rewriteHostTransport{
		host:   "api.anthropic.com",
		target: targetURL,
		base:   orig,
	}
	t.Cleanup(func() {
		http.DefaultTransport = orig
	})
}

type slackRecorder struct {
	posts      int
	lastText   string
	lastBlocks string
	fail       bool
}

func newMockSlackAPI(t *testing.T) (*slack.Client, *slackRecorder) {
	t.Helper()

	rec := &slackRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/api/") != "chat.postMessage" {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse chat.postMessage form: %v", err)
		}
		rec.posts++
		rec.lastText = r.Form.Get("text")
		rec.lastBlocks = r.Form.Get("blocks")
		if rec.fail {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C123", "ts": "1756500000.000100"})
	}))
	t.Cleanup(server.Close)

	api := slack.New("xoxb-test", slack.OptionAPIURL(server.URL+"/api/"))
	return api, rec
}

func newTestRunLog(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// sampleInsightsResponse carries one summary row, two exception groups and a
// short timeline through the tagged-union row shape the query returns.
func sampleInsightsResponse() insightsQueryResponse {
	columns := []insightsColumn{
		{Name: "DataType"}, {Name: "TotalRequests"}, {Name: "FailedRequests"},
		{Name: "TotalExceptions"}, {Name: "TotalDependencies"}, {Name: "FailedDependencies"},
		{Name: "AvgResponseTime"}, {Name: "P95ResponseTime"}, {Name: "SuccessRate"},
		{Name: "problemId"}, {Name: "type"}, {Name: "operation_Name"},
		{Name: "Count"}, {Name: "SampleMessage"}, {Name: "LatestOccurrence"},
		{Name: "timestamp"},
	}
	rows := [][]any{
		{"Summary", 15000.0, 120.0, 2500.0, 48000.0, 300.0, 245.2, 890.5, 99.2,
			nil, nil, nil, nil, nil, nil, nil},
		{"ExceptionGroup", nil, nil, nil, nil, nil, nil, nil, nil,
			"System.TimeoutException at Payments.Charge", "System.TimeoutException", "POST /payments",
			1800.0, "2026-03-03T11:02:00 - connection timed out", "2026-03-03T11:02:00Z", nil},
		{"ExceptionGroup", nil, nil, nil, nil, nil, nil, nil, nil,
			"System.NullReferenceException at Catalog.Lookup", "System.NullReferenceException", "GET /catalog",
			400.0, "object reference not set", "2026-03-03T09:15:00Z", nil},
		{"Timeline", nil, nil, nil, nil, nil, nil, nil, nil,
			nil, nil, nil, 120.0, nil, nil, "2026-03-03T08:00:00Z"},
		{"Timeline", nil, nil, nil, nil, nil, nil, nil, nil,
			nil, nil, nil, 340.0, nil, nil, "2026-03-03T09:00:00Z"},
	}
	return insightsQueryResponse{Tables: []insightsTable{{Name: "PrimaryResult", Columns: columns, Rows: rows}}}
}

func serveInsightsResponse(t *testing.T, resp insightsQueryResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			t.Fatalf("expected bearer token auth header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

var functionalNow = time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC) // Wednesday, 1-day lookback

func TestFunctional_RunReport_PostsBlocks(t *testing.T) {
	withMockInsightsAPI(t, serveInsightsResponse(t, sampleInsightsResponse()))
	api, rec := newMockSlackAPI(t)
	db := newTestRunLog(t)
	cfg := validTestConfig()

	if code := RunReport(cfg, api, db, functionalNow, false); code != 0 {
		t.Fatalf("RunReport = %d, want 0", code)
	}
	if rec.posts != 1 {
		t.Fatalf("expected 1 chat.postMessage call, got %d", rec.posts)
	}
	if rec.lastBlocks == "" {
		t.Fatal("expected a block payload on the success path")
	}
	if !strings.Contains(rec.lastText, cfg.ReportTitle) || !strings.Contains(rec.lastText, statusWarning) {
		t.Errorf("fallback text missing title or status: %q", rec.lastText)
	}
	if !strings.Contains(rec.lastBlocks, "System.TimeoutException") {
		t.Errorf("blocks missing top issue operation: %s", rec.lastBlocks)
	}

	runs, err := RecentRunRecords(db, 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("RecentRunRecords = %v, %v", runs, err)
	}
	if runs[0].Outcome != "posted" || runs[0].TotalExceptions != 2500 {
		t.Errorf("unexpected run record: %+v", runs[0])
	}
}

func TestFunctional_RunReport_QueryUsesLookbackWindow(t *testing.T) {
	sawQuery := ""
	withMockInsightsAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var req insightsQueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode query request: %v", err)
		}
		sawQuery = req.Query
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleInsightsResponse())
	})
	api, _ := newMockSlackAPI(t)

	if code := RunReport(validTestConfig(), api, nil, functionalNow, false); code != 0 {
		t.Fatalf("RunReport = %d, want 0", code)
	}
	if !strings.Contains(sawQuery, "ago(1d)") {
		t.Errorf("query missing 1-day window for a Wednesday run:\n%s", sawQuery)
	}
}

func TestFunctional_RunReport_TelemetryFailure(t *testing.T) {
	withMockInsightsAPI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusInternalServerError)
	})
	api, rec := newMockSlackAPI(t)
	db := newTestRunLog(t)

	if code := RunReport(validTestConfig(), api, db, functionalNow, false); code != 1 {
		t.Fatalf("RunReport = %d, want 1", code)
	}
	if rec.posts != 1 {
		t.Fatalf("expected 1 error notification post, got %d", rec.posts)
	}
	if !strings.Contains(rec.lastText, "Telemetry fetch failed") || !strings.Contains(rec.lastText, "HTTP error 500") {
		t.Errorf("error notification missing failure descriptor: %q", rec.lastText)
	}
	if rec.lastBlocks != "" {
		t.Errorf("error notification should be plain text, got blocks: %s", rec.lastBlocks)
	}

	runs, err := RecentRunRecords(db, 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("RecentRunRecords = %v, %v", runs, err)
	}
	if runs[0].Outcome != "error" {
		t.Errorf("run outcome = %q, want error", runs[0].Outcome)
	}
}

func TestFunctional_RunReport_NoDataPostsHealthyNotice(t *testing.T) {
	withMockInsightsAPI(t, serveInsightsResponse(t, insightsQueryResponse{
		Tables: []insightsTable{{Name: "PrimaryResult"}},
	}))
	api, rec := newMockSlackAPI(t)

	if code := RunReport(validTestConfig(), api, nil, functionalNow, false); code != 0 {
		t.Fatalf("RunReport = %d, want 0", code)
	}
	if rec.posts != 1 {
		t.Fatalf("expected 1 no-data notice post, got %d", rec.posts)
	}
	if !strings.Contains(rec.lastText, "no telemetry data") || !strings.Contains(rec.lastText, statusHealthy) {
		t.Errorf("no-data notice missing healthy glyph or reason: %q", rec.lastText)
	}
}

func TestFunctional_RunReport_UnparsableSummaryFallsBackToRawText(t *testing.T) {
	withMockInsightsAPI(t, serveInsightsResponse(t, sampleInsightsResponse()))
	withMockAnthropicAPI(t, "All quiet today, nothing stood out worth flagging.")
	api, rec := newMockSlackAPI(t)
	db := newTestRunLog(t)

	cfg := validTestConfig()
	cfg.LLMEnabled = true
	cfg.AnthropicAPIKey = "sk-ant-test"

	if code := RunReport(cfg, api, db, functionalNow, false); code != 1 {
		t.Fatalf("RunReport = %d, want 1", code)
	}
	if rec.posts != 1 {
		t.Fatalf("expected 1 raw-text fallback post, got %d", rec.posts)
	}
	if rec.lastBlocks != "" {
		t.Errorf("fallback should be plain text, got blocks: %s", rec.lastBlocks)
	}
	if !strings.HasPrefix(rec.lastText, "⚠️ ") || !strings.Contains(rec.lastText, "nothing stood out") {
		t.Errorf("fallback post missing warning prefix or raw text: %q", rec.lastText)
	}

	runs, err := RecentRunRecords(db, 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("RecentRunRecords = %v, %v", runs, err)
	}
	if runs[0].Outcome != "fallback" {
		t.Errorf("run outcome = %q, want fallback", runs[0].Outcome)
	}
}

func TestFunctional_RunReport_DeliveryFailure(t *testing.T) {
	withMockInsightsAPI(t, serveInsightsResponse(t, sampleInsightsResponse()))
	api, rec := newMockSlackAPI(t)
	rec.fail = true
	db := newTestRunLog(t)

	if code := RunReport(validTestConfig(), api, db, functionalNow, false); code != 1 {
		t.Fatalf("RunReport = %d, want 1", code)
	}

	runs, err := RecentRunRecords(db, 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("RecentRunRecords = %v, %v", runs, err)
	}
	if runs[0].Outcome != "error" || !strings.Contains(runs[0].Detail, "channel_not_found") {
		t.Errorf("unexpected run record after delivery failure: %+v", runs[0])
	}
}
