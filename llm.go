package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

type LLMUsage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

const summarySystemPrompt = `You are an SRE assistant writing a daily health summary from telemetry data.
Produce a concise report with exactly this shape:
- First line: a status emoji (✅ healthy, 🟡 warning, 🔴 critical) followed by a short title and the date.
- A "Metrics:" line with exception, request and dependency counts and the P95 response time.
- A "Business Metrics:" line when business counters are present.
- A "Top 5 Problems:" section with numbered lines like "1. **1,234×** <description>".
- A final "🚨 Action Required:" line naming the most urgent investigation.
Use thousands separators in all counts. Do not invent numbers that are not in the data.`

type llmSummaryInput struct {
	DateRange string           `json:"date_range"`
	Summary   MetricSnapshot   `json:"summary"`
	Business  BusinessMetrics  `json:"business_metrics,omitempty"`
	TopIssues []ExceptionGroup `json:"top_issues"`
}

// SummarizeInsights asks the model to write the report text instead of the
// deterministic composer. The parser downstream tolerates both shapes, and
// callers fall back to the composer on any error here.
func SummarizeInsights(cfg Config, result *InsightsResult, business BusinessMetrics) (string, LLMUsage, error) {
	input := llmSummaryInput{
		DateRange: result.Range.Label,
		Summary:   result.Summary,
		Business:  business,
		TopIssues: TopIssues(result.Groups, maxReportIssues),
	}
	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("encoding summary input: %w", err)
	}

	model := cfg.LLMModel
	if model == "" {
		model = defaultAnthropicModel
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	log.Printf("llm summarize model=%s groups=%d", model, len(input.TopIssues))

	message, err := client.Messages.New(context.Background(), anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1500,
		System: []anthropic.TextBlockParam{
			{Text: summarySystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(string(payload))),
		},
	})
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}

	usage := LLMUsage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm summarize response size=%d tokens_in=%d tokens_out=%d",
				len(block.Text), usage.InputTokens, usage.OutputTokens)
			return block.Text, usage, nil
		}
	}
	return "", usage, fmt.Errorf("no text content in Anthropic response")
}
