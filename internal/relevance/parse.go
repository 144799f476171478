package relevance

import (
	"encoding/json"
	"fmt"
	"strings"

	"newsmonitor/internal/core"
)

// rawRelevance mirrors the JSON shape the relevance_analysis template asks
// the model to emit.
type rawRelevance struct {
	TopicAlignmentScore      float64  `json:"topic_alignment_score"`
	KeywordRelevanceScore    float64  `json:"keyword_relevance_score"`
	ConfidenceScore          float64  `json:"confidence_score"`
	OverallMatchExplanation  string   `json:"overall_match_explanation"`
	ExtractedArticleTopics   []string `json:"extracted_article_topics"`
	ExtractedArticleKeywords []string `json:"extracted_article_keywords"`
}

// parseRelevanceResponse extracts the first {...} JSON object from raw
// (stripping fenced code blocks and any surrounding prose) and clamps its
// scores into [0,1].
func parseRelevanceResponse(raw string) (core.RelevanceResult, error) {
	jsonStr, err := extractJSONObject(raw)
	if err != nil {
		return core.RelevanceResult{}, err
	}

	var parsed rawRelevance
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return core.RelevanceResult{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if parsed.OverallMatchExplanation == "" {
		parsed.OverallMatchExplanation = "No explanation provided"
	}
	if parsed.ExtractedArticleTopics == nil {
		parsed.ExtractedArticleTopics = []string{}
	}
	if parsed.ExtractedArticleKeywords == nil {
		parsed.ExtractedArticleKeywords = []string{}
	}

	return core.RelevanceResult{
		TopicAlignmentScore:      clamp01(parsed.TopicAlignmentScore),
		KeywordRelevanceScore:    clamp01(parsed.KeywordRelevanceScore),
		ConfidenceScore:          clamp01(parsed.ConfidenceScore),
		OverallMatchExplanation:  parsed.OverallMatchExplanation,
		ExtractedArticleTopics:   parsed.ExtractedArticleTopics,
		ExtractedArticleKeywords: parsed.ExtractedArticleKeywords,
	}, nil
}

// extractJSONObject strips Markdown fenced code blocks, then returns the
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

// stripFencedCodeBlock removes a leading/trailing ``` or ```json fence,
// if present, without disturbing the JSON body between them.
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
