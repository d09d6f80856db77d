package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const insightsQueryTemplate = `
let summary = union requests, exceptions, dependencies, traces
| where timestamp > ago(%dd)
| summarize
    TotalRequests = countif(itemType == 'request'),
    FailedRequests = countif(itemType == 'request' and success == false),
    TotalExceptions = countif(itemType == 'exception'),
    AvgResponseTime = avgif(duration, itemType == 'request'),
    P95ResponseTime = percentile(duration, 95),
    TotalDependencies = countif(itemType == 'dependency'),
    FailedDependencies = countif(itemType == 'dependency' and success == false)
| extend SuccessRate = iff(TotalRequests > 0, round(100.0 * (TotalRequests - FailedRequests) / TotalRequests, 2), 100.0)
| extend DataType = "Summary";
let exceptionDetails = exceptions
| where timestamp > ago(%dd)
| project
    DataType = "Exception",
    timestamp,
    type,
    outerMessage,
    problemId,
    operation_Name,
    cloud_RoleName,
    severityLevel
| order by timestamp desc
| take 50;
let exceptionGroups = exceptions
| where timestamp > ago(%dd)
| summarize
    Count = count(),
    LatestOccurrence = max(timestamp),
    SampleMessage = any(outerMessage)
    by problemId, type, operation_Name
| order by Count desc
| take 20
| extend DataType = "ExceptionGroup";
let exceptionTimeline = exceptions
| where timestamp > ago(%dd)
| summarize
    Count = count()
    by bin(timestamp, 1h)
| order by timestamp asc
| extend DataType = "Timeline";
union summary, exceptionDetails, exceptionGroups, exceptionTimeline
`

type insightsQueryRequest struct {
	Query string `json:"query"`
}

type insightsQueryResponse struct {
	Tables []insightsTable `json:"tables"`
}

type insightsTable struct {
	Name    string           `json:"name"`
	Columns []insightsColumn `json:"columns"`
	Rows    [][]any          `json:"rows"`
}

type insightsColumn struct {
	Name string `json:"name"`
}

// FetchInsights runs the combined KQL query against the Application Insights
// REST API and splits the tagged rows into typed records.
func FetchInsights(cfg Config, dr DateRange) (*InsightsResult, error) {
	start := time.Now()
	query := fmt.Sprintf(insightsQueryTemplate, dr.DaysBack, dr.DaysBack, dr.DaysBack, dr.DaysBack)

	body, err := json.Marshal(insightsQueryRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	apiURL := fmt.Sprintf("https://api.applicationinsights.io/v1/apps/%s/query", cfg.InsightsWorkspaceID)
	req, err := http.NewRequest("POST", apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.InsightsAccessToken)
	req.Header.Set("Content-Type", "application/json")

	log.Printf("insights fetch workspace=%s days_back=%d", cfg.InsightsWorkspaceID, dr.DaysBack)
	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != 200 {
		return nil, insightsHTTPError(resp.StatusCode, respBody)
	}

	var result insightsQueryResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	rows := zipTableRows(result.Tables)
	out := splitInsightRows(rows)
	out.Range = dr
	out.Elapsed = time.Since(start).Seconds()
	log.Printf("insights fetch done rows=%d groups=%d timeline=%d elapsed=%.2fs",
		len(rows), len(out.Groups), len(out.Timeline), out.Elapsed)
	return out, nil
}

func insightsHTTPError(status int, body []byte) error {
	switch status {
	case 401:
		return fmt.Errorf("Authentication failed - token may be expired or invalid")
	case 403:
		return fmt.Errorf("Access denied - insufficient permissions for Application Insights")
	default:
		return fmt.Errorf("HTTP error %d: %s", status, string(body))
	}
}

// zipTableRows pairs the first table's column names with each row's values.
func zipTableRows(tables []insightsTable) []map[string]any {
	if len(tables) == 0 {
		return nil
	}
	table := tables[0]
	rows := make([]map[string]any, 0, len(table.Rows))
	for _, raw := range table.Rows {
		row := make(map[string]any, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(raw) {
				row[col.Name] = raw[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// splitInsightRows routes rows by their DataType discriminator. Exception
// detail rows are accepted but unused by the report.
func splitInsightRows(rows []map[string]any) *InsightsResult {
	out := &InsightsResult{}
	for _, row := range rows {
		switch rowString(row, "DataType") {
		case "Summary":
			out.HasSummary = true
			out.Summary = MetricSnapshot{
				TotalRequests:      rowInt(row, "TotalRequests"),
				FailedRequests:     rowInt(row, "FailedRequests"),
				TotalExceptions:    rowInt(row, "TotalExceptions"),
				TotalDependencies:  rowInt(row, "TotalDependencies"),
				FailedDependencies: rowInt(row, "FailedDependencies"),
				AvgResponseTime:    rowFloat(row, "AvgResponseTime"),
				P95ResponseTime:    rowFloat(row, "P95ResponseTime"),
				SuccessRate:        rowFloat(row, "SuccessRate"),
			}
			if out.Summary.TotalRequests == 0 {
				out.Summary.SuccessRate = 100
			}
		case "ExceptionGroup":
			out.Groups = append(out.Groups, ExceptionGroup{
				ProblemID:        rowString(row, "problemId"),
				Type:             rowString(row, "type"),
				OperationName:    rowString(row, "operation_Name"),
				Count:            rowInt(row, "Count"),
				SampleMessage:    rowString(row, "SampleMessage"),
				LatestOccurrence: rowTime(row, "LatestOccurrence"),
			})
		case "Timeline":
			out.Timeline = append(out.Timeline, TimelineBucket{
				Timestamp: rowTime(row, "timestamp"),
				Count:     rowInt(row, "Count"),
			})
		}
	}
	return out
}

func rowString(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func rowFloat(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

func rowInt(row map[string]any, key string) int64 {
	return int64(rowFloat(row, key))
}

func rowTime(row map[string]any, key string) time.Time {
	raw := rowString(row, key)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t
		}
	}
	return time.Time{}
}
