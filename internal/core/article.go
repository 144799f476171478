// Package core holds the domain record types shared across the pipeline:
// articles, keyword groups, alerts, media-bias rows, and the background
// task model. Persistence, analysis, and scoring packages all operate on
// these types rather than ad-hoc maps.
package core

import "time"

// IngestStatus is the terminal decision recorded for an auto-ingested article.
type IngestStatus string

const (
	IngestStatusPending  IngestStatus = "pending"
	IngestStatusApproved IngestStatus = "approved"
	IngestStatusFailed   IngestStatus = "failed"
	IngestStatusManual   IngestStatus = "manual"
)

// Article is keyed by its canonical URI; re-ingest is always an upsert.
type Article struct {
	URI             string    `json:"uri" db:"uri"`
	Title           string    `json:"title" db:"title"`
	NewsSource      string    `json:"news_source" db:"news_source"`
	PublicationDate string    `json:"publication_date" db:"publication_date"`
	SubmissionDate  time.Time `json:"submission_date" db:"submission_date"`
	Summary         string    `json:"summary" db:"summary"`
	Topic           string    `json:"topic" db:"topic"`
	Analyzed        bool      `json:"analyzed" db:"analyzed"`

	// Analyzer outputs (C6).
	Category                string   `json:"category" db:"category"`
	Sentiment               string   `json:"sentiment" db:"sentiment"`
	SentimentExplanation    string   `json:"sentiment_explanation" db:"sentiment_explanation"`
	FutureSignal            string   `json:"future_signal" db:"future_signal"`
	FutureSignalExplanation string   `json:"future_signal_explanation" db:"future_signal_explanation"`
	TimeToImpact            string   `json:"time_to_impact" db:"time_to_impact"`
	TimeToImpactExplanation string   `json:"time_to_impact_explanation" db:"time_to_impact_explanation"`
	DriverType              string   `json:"driver_type" db:"driver_type"`
	DriverTypeExplanation   string   `json:"driver_type_explanation" db:"driver_type_explanation"`
	Tags                    []string `json:"tags" db:"tags"`

	// Media-bias enrichment (C5).
	Bias                  string `json:"bias" db:"bias"`
	FactualReporting      string `json:"factual_reporting" db:"factual_reporting"`
	MBFCCredibilityRating string `json:"mbfc_credibility_rating" db:"mbfc_credibility_rating"`
	BiasSource            string `json:"bias_source" db:"bias_source"`
	BiasCountry           string `json:"bias_country" db:"bias_country"`
	PressFreedom          string `json:"press_freedom" db:"press_freedom"`
	MediaType             string `json:"media_type" db:"media_type"`
	Popularity            string `json:"popularity" db:"popularity"`

	// Relevance scoring (C7).
	TopicAlignmentScore      float64  `json:"topic_alignment_score" db:"topic_alignment_score"`
	KeywordRelevanceScore    float64  `json:"keyword_relevance_score" db:"keyword_relevance_score"`
	ConfidenceScore          float64  `json:"confidence_score" db:"confidence_score"`
	OverallMatchExplanation  string   `json:"overall_match_explanation" db:"overall_match_explanation"`
	ExtractedArticleTopics   []string `json:"extracted_article_topics" db:"extracted_article_topics"`
	ExtractedArticleKeywords []string `json:"extracted_article_keywords" db:"extracted_article_keywords"`

	// Auto-ingest decision (C11).
	AutoIngested  bool         `json:"auto_ingested" db:"auto_ingested"`
	IngestStatus  IngestStatus `json:"ingest_status" db:"ingest_status"`
	QualityScore  float64      `json:"quality_score" db:"quality_score"`
	QualityIssues []string     `json:"quality_issues" db:"quality_issues"`
}

// RawArticle holds the full scraped document text, one-to-one with Article.
type RawArticle struct {
	URI         string `json:"uri" db:"uri"`
	RawMarkdown string `json:"raw_markdown" db:"raw_markdown"`
	Topic       string `json:"topic" db:"topic"`
}

// MaxRawContentChars is the text budget applied both before storing raw
// content and before any LLM call consumes it (spec §3.1, §4.4).
const MaxRawContentChars = 65000
