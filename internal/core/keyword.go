package core

import "time"

// KeywordGroup is the unit of monitor scheduling: a named set of keywords
// sharing a topic.
type KeywordGroup struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Topic string `json:"topic" db:"topic"`
}

// Keyword is a single literal query string belonging to a KeywordGroup.
type Keyword struct {
	ID          int64     `json:"id" db:"id"`
	GroupID     int64     `json:"group_id" db:"group_id"`
	Keyword     string    `json:"keyword" db:"keyword"`
	LastChecked time.Time `json:"last_checked" db:"last_checked"`
}

// Alert records a (keyword-set, article) match discovered during a monitor
// tick. It is unique on (KeywordIDs, ArticleURI) and is the queue C11 drains.
type Alert struct {
	ID         int64     `json:"id" db:"id"`
	KeywordIDs string    `json:"keyword_ids" db:"keyword_ids"` // CSV of contributing keyword IDs
	ArticleURI string    `json:"article_uri" db:"article_uri"`
	DetectedAt time.Time `json:"detected_at" db:"detected_at"`
	IsRead     bool      `json:"is_read" db:"is_read"`

	// Article is populated by the alerts-listing query; nil elsewhere.
	Article *Article `json:"article,omitempty" db:"-"`
}

// KeywordMonitorSettings is a singleton row driving both the monitor tick
// and the auto-ingest pipeline configuration.
type KeywordMonitorSettings struct {
	CheckInterval     int    `json:"check_interval" mapstructure:"check_interval"`
	IntervalUnit      string `json:"interval_unit" mapstructure:"interval_unit"` // "seconds"|"minutes"|"hours"
	SearchFields      string `json:"search_fields" mapstructure:"search_fields"`
	Language          string `json:"language" mapstructure:"language"`
	SortBy            string `json:"sort_by" mapstructure:"sort_by"`
	PageSize          int    `json:"page_size" mapstructure:"page_size"`
	DailyRequestLimit int    `json:"daily_request_limit" mapstructure:"daily_request_limit"`
	Provider          string `json:"provider" mapstructure:"provider"`

	AutoIngestEnabled     bool    `json:"auto_ingest_enabled" mapstructure:"auto_ingest_enabled"`
	MinRelevanceThreshold float64 `json:"min_relevance_threshold" mapstructure:"min_relevance_threshold"`
	QualityControlEnabled bool    `json:"quality_control_enabled" mapstructure:"quality_control_enabled"`
	AutoSaveApprovedOnly  bool    `json:"auto_save_approved_only" mapstructure:"auto_save_approved_only"`
	DefaultLLMModel       string  `json:"default_llm_model" mapstructure:"default_llm_model"`
	LLMTemperature        float64 `json:"llm_temperature" mapstructure:"llm_temperature"`
	LLMMaxTokens          int     `json:"llm_max_tokens" mapstructure:"llm_max_tokens"`
	BatchSize             int     `json:"batch_size" mapstructure:"batch_size"`
	MaxConcurrentBatches  int     `json:"max_concurrent_batches" mapstructure:"max_concurrent_batches"`
}

// DefaultKeywordMonitorSettings mirrors the defaults the original
// implementation shipped with its singleton settings row.
func DefaultKeywordMonitorSettings() KeywordMonitorSettings {
	return KeywordMonitorSettings{
		CheckInterval:         15,
		IntervalUnit:          "minutes",
		SearchFields:          "title,description",
		Language:              "en",
		SortBy:                "publishedAt",
		PageSize:              20,
		DailyRequestLimit:     100,
		Provider:              "newsapi",
		AutoIngestEnabled:     false,
		MinRelevanceThreshold: 0.5,
		QualityControlEnabled: true,
		AutoSaveApprovedOnly:  false,
		DefaultLLMModel:       "gpt-4o-mini",
		LLMTemperature:        0.1,
		LLMMaxTokens:          1000,
		BatchSize:             5,
		MaxConcurrentBatches:  1,
	}
}

// KeywordMonitorStatus is a singleton tracking scheduler health and the
// shared daily-request counter enforced across all providers.
type KeywordMonitorStatus struct {
	LastRunTime   *time.Time `json:"last_run_time"`
	NextRunTime   *time.Time `json:"next_run_time"`
	LastError     string     `json:"last_error"`
	RequestsToday int        `json:"requests_today"`
	LastResetDate string     `json:"last_reset_date"` // YYYY-MM-DD, UTC
}
