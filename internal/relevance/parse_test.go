package relevance

import (
	"reflect"
	"testing"
)

func TestParseRelevanceResponseCleanJSON(t *testing.T) {
	raw := `{"topic_alignment_score": 0.8, "keyword_relevance_score": 0.6, "confidence_score": 0.9, "overall_match_explanation": "good match", "extracted_article_topics": ["ai"], "extracted_article_keywords": ["llm"]}`

	result, err := parseRelevanceResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TopicAlignmentScore != 0.8 || result.KeywordRelevanceScore != 0.6 {
		t.Errorf("unexpected scores: %+v", result)
	}
	if !reflect.DeepEqual(result.ExtractedArticleTopics, []string{"ai"}) {
		t.Errorf("unexpected topics: %v", result.ExtractedArticleTopics)
	}
}

func TestParseRelevanceResponseWithSurroundingProse(t *testing.T) {
	raw := `Sure, here is the analysis:
{"topic_alignment_score": 1.5, "keyword_relevance_score": -0.2, "confidence_score": 0.5, "overall_match_explanation": "", "extracted_article_topics": [], "extracted_article_keywords": []}
Let me know if you need anything else.`

	result, err := parseRelevanceResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TopicAlignmentScore != 1.0 {
		t.Errorf("expected clamped score of 1.0, got %v", result.TopicAlignmentScore)
	}
	if result.KeywordRelevanceScore != 0.0 {
		t.Errorf("expected clamped score of 0.0, got %v", result.KeywordRelevanceScore)
	}
	if result.OverallMatchExplanation != "No explanation provided" {
		t.Errorf("expected default explanation, got %q", result.OverallMatchExplanation)
	}
}

func TestParseRelevanceResponseFencedCodeBlock(t *testing.T) {
	raw := "```json\n{\"topic_alignment_score\": 0.4, \"keyword_relevance_score\": 0.4, \"confidence_score\": 0.4, \"overall_match_explanation\": \"ok\", \"extracted_article_topics\": [], \"extracted_article_keywords\": []}\n```"

	result, err := parseRelevanceResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TopicAlignmentScore != 0.4 {
		t.Errorf("unexpected score: %v", result.TopicAlignmentScore)
	}
}

func TestParseRelevanceResponseNoJSONIsError(t *testing.T) {
	if _, err := parseRelevanceResponse("not json at all"); err == nil {
		t.Fatal("expected error for missing JSON object")
	}
}

func TestParseRelevanceResponseMalformedJSONIsError(t *testing.T) {
	if _, err := parseRelevanceResponse(`{"topic_alignment_score": "not a number"}`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestClamp01(t *testing.T) {
	cases := map[float64]float64{-1: 0, 0: 0, 0.5: 0.5, 1: 1, 2: 1}
	for in, want := range cases {
		if got := clamp01(in); got != want {
			t.Errorf("clamp01(%v) = %v, want %v", in, got, want)
		}
	}
}
