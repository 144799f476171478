package core

import "time"

// AnalysisCacheEntry is keyed by (uri, model_name); an entry is valid iff
// ContentHash and TemplateHash both match the current inputs and it has
// not exceeded its TTL.
type AnalysisCacheEntry struct {
	URI          string
	ModelName    string
	ContentHash  string
	TemplateHash string
	CachedAt     time.Time
	Analysis     map[string]any
}

// Analysis is the structured output of the article analyzer (C6).
type Analysis struct {
	Title                   string   `json:"title"`
	Summary                 string   `json:"summary"`
	Category                string   `json:"category"`
	FutureSignal            string   `json:"future_signal"`
	FutureSignalExplanation string   `json:"future_signal_explanation"`
	Sentiment               string   `json:"sentiment"`
	SentimentExplanation    string   `json:"sentiment_explanation"`
	TimeToImpact            string   `json:"time_to_impact"`
	TimeToImpactExplanation string   `json:"time_to_impact_explanation"`
	DriverType              string   `json:"driver_type"`
	DriverTypeExplanation   string   `json:"driver_type_explanation"`
	Tags                    []string `json:"tags"`
	PublicationDate         string   `json:"publication_date"`
	URI                     string   `json:"uri"`
	ModelName               string   `json:"model_name"`
}

// AnalysisConfig enumerates the per-topic ontology applied during analysis.
type AnalysisConfig struct {
	SummaryLength       int
	SummaryVoice        string
	SummaryType         string
	Categories          []string
	FutureSignals       []string
	SentimentOptions    []string
	TimeToImpactOptions []string
	DriverTypes         []string
}

// DefaultAnalysisConfig mirrors the hardcoded default ontology the original
// ingest service applied when a topic had no custom configuration.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		SummaryLength: 3,
		SummaryVoice:  "neutral",
		SummaryType:   "bullet",
		Categories: []string{
			"Technology", "Business", "Politics", "Science",
			"Health", "Environment", "Society", "Other",
		},
		FutureSignals: []string{
			"Emerging", "Accelerating", "Mainstream", "Declining", "None",
		},
		SentimentOptions: []string{"Positive", "Negative", "Neutral", "Mixed"},
		TimeToImpactOptions: []string{
			"Immediate", "Short-term", "Medium-term", "Long-term", "Unclear",
		},
		DriverTypes: []string{
			"Technology", "Regulation", "Market", "Social", "Geopolitical", "Other",
		},
	}
}

// RelevanceResult is the structured output of the relevance calculator (C7).
type RelevanceResult struct {
	TopicAlignmentScore      float64  `json:"topic_alignment_score"`
	KeywordRelevanceScore    float64  `json:"keyword_relevance_score"`
	ConfidenceScore          float64  `json:"confidence_score"`
	OverallMatchExplanation  string   `json:"overall_match_explanation"`
	ExtractedArticleTopics   []string `json:"extracted_article_topics"`
	ExtractedArticleKeywords []string `json:"extracted_article_keywords"`
}

// ZeroRelevanceResult builds the all-zero fallback record relevance
// scoring returns when parsing fails; it must never throw to callers.
func ZeroRelevanceResult(explanation string) RelevanceResult {
	return RelevanceResult{
		OverallMatchExplanation:  explanation,
		ExtractedArticleTopics:   []string{},
		ExtractedArticleKeywords: []string{},
	}
}

// QualityRecommendation is the verdict of the content-quality review (§4.8.1).
type QualityRecommendation string

const (
	RecommendationApprove QualityRecommendation = "approve"
	RecommendationReview  QualityRecommendation = "review"
	RecommendationReject  QualityRecommendation = "reject"
)

// QualityContentType classifies what kind of page was actually scraped.
type QualityContentType string

const (
	ContentTypeArticle    QualityContentType = "article"
	ContentTypeCookie     QualityContentType = "cookie_notice"
	ContentTypePaywall    QualityContentType = "paywall"
	ContentTypeErrorPage  QualityContentType = "error_page"
	ContentTypeNavigation QualityContentType = "navigation"
	ContentTypeOther      QualityContentType = "other"
)

type QualityReview struct {
	QualityScore   float64               `json:"quality_score"`
	IssuesDetected []string              `json:"issues_detected"`
	Recommendation QualityRecommendation `json:"recommendation"`
	Explanation    string                `json:"explanation"`
	ContentType    QualityContentType    `json:"content_type"`
}

// ConservativeQualityReview is returned whenever the quality-review LLM
// response fails to parse as JSON (spec §4.8.1, Open Question 2).
func ConservativeQualityReview(explanation string) QualityReview {
	return QualityReview{
		QualityScore:   0.3,
		IssuesDetected: []string{},
		Recommendation: RecommendationReview,
		Explanation:    explanation,
		ContentType:    ContentTypeOther,
	}
}
