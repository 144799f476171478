package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/prompts"
)

// Generator is the subset of llm.Client the quality reviewer needs.
type Generator interface {
	Generate(ctx context.Context, messages []core.PromptMessage) (string, error)
}

// QualityReview runs the second-pass content-quality check described in
// §4.8.1: does the scraped text actually look like the article it claims
// to be, or is it a cookie banner, paywall stub, or error page. A parse
// failure never fails the pipeline; it yields the conservative
// review-not-reject default.
type QualityReview struct {
	llm     Generator
	prompts *prompts.Registry
}

func NewQualityReview(llm Generator, promptRegistry *prompts.Registry) *QualityReview {
	return &QualityReview{llm: llm, prompts: promptRegistry}
}

func (q *QualityReview) Review(ctx context.Context, title, source, content string) core.QualityReview {
	messages, err := q.prompts.FormatQualityReviewPrompt(prompts.QualityReviewPromptInput{
		Title:   orDefault(title, "No title available"),
		Source:  orDefault(source, "Unknown source"),
		Content: orDefault(content, "No content available"),
	})
	if err != nil {
		logger.Warn("ingest: failed to format quality review prompt", "error", err.Error())
		return core.ConservativeQualityReview(fmt.Sprintf("failed to format quality review prompt: %s", err.Error()))
	}

	raw, err := q.llm.Generate(ctx, messages)
	if err != nil {
		logger.Warn("ingest: quality review model call failed", "error", err.Error())
		return core.ConservativeQualityReview(fmt.Sprintf("quality review failed: %s", err.Error()))
	}

	review, err := parseQualityReview(raw)
	if err != nil {
		logger.Warn("ingest: failed to parse quality review response", "error", err.Error(), "raw", raw)
		return core.ConservativeQualityReview(fmt.Sprintf("failed to parse quality review response: %s", err.Error()))
	}
	return review
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

type rawQualityReview struct {
	QualityScore   float64                    `json:"quality_score"`
	IssuesDetected []string                   `json:"issues_detected"`
	Recommendation core.QualityRecommendation `json:"recommendation"`
	Explanation    string                     `json:"explanation"`
	ContentType    core.QualityContentType    `json:"content_type"`
}

func parseQualityReview(raw string) (core.QualityReview, error) {
	jsonStr, err := extractJSONObject(raw)
	if err != nil {
		return core.QualityReview{}, err
	}

	var parsed rawQualityReview
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return core.QualityReview{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if parsed.IssuesDetected == nil {
		parsed.IssuesDetected = []string{}
	}
	if parsed.Explanation == "" {
		parsed.Explanation = "No explanation provided"
	}
	switch parsed.Recommendation {
	case core.RecommendationApprove, core.RecommendationReview, core.RecommendationReject:
	default:
		parsed.Recommendation = core.RecommendationReview
	}
	if parsed.ContentType == "" {
		parsed.ContentType = core.ContentTypeOther
	}

	return core.QualityReview{
		QualityScore:   clamp01(parsed.QualityScore),
		IssuesDetected: parsed.IssuesDetected,
		Recommendation: parsed.Recommendation,
		Explanation:    parsed.Explanation,
		ContentType:    parsed.ContentType,
	}, nil
}

// extractJSONObject strips a Markdown fenced code block, then returns the
// substring from the first '{' to the last '}'.
func extractJSONObject(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	raw = stripFencedCodeBlock(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return raw[start : end+1], nil
}

func stripFencedCodeBlock(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
