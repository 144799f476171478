// Package persistence provides the durable-state abstraction for C1:
// articles, raw content, keyword groups/keywords, alerts, media-bias
// rows, and the monitor/ingest singleton settings.
package persistence

import (
	"context"
	"time"

	"newsmonitor/internal/core"
)

// ListOptions drives pagination/filtering across list queries.
type ListOptions struct {
	Limit  int
	Offset int
	Topic  string
}

// ArticleRepository owns the articles table.
type ArticleRepository interface {
	Upsert(ctx context.Context, article *core.Article) error
	Get(ctx context.Context, uri string) (*core.Article, error)
	List(ctx context.Context, opts ListOptions) ([]core.Article, error)
	Delete(ctx context.Context, uri string) error
	GetRecent(ctx context.Context, since time.Time, limit int) ([]core.Article, error)
	ListUningestedWithUnreadAlerts(ctx context.Context, limit int) ([]core.Article, error)
}

// RawArticleRepository owns raw_articles, one-to-one with articles.
type RawArticleRepository interface {
	Upsert(ctx context.Context, raw *core.RawArticle) error
	Get(ctx context.Context, uri string) (*core.RawArticle, error)
}

// KeywordGroupRepository owns keyword_groups.
type KeywordGroupRepository interface {
	Create(ctx context.Context, g *core.KeywordGroup) error
	Get(ctx context.Context, id int64) (*core.KeywordGroup, error)
	List(ctx context.Context) ([]core.KeywordGroup, error)
}

// KeywordRepository owns monitored_keywords.
type KeywordRepository interface {
	Create(ctx context.Context, k *core.Keyword) error
	ListEnabled(ctx context.Context, groupID int64) ([]core.Keyword, error)
	UpdateLastChecked(ctx context.Context, id int64, t time.Time) error
}

// AlertRepository owns keyword_article_matches (spec Open Question 1:
// the legacy keyword_alerts shape is intentionally not implemented).
type AlertRepository interface {
	Insert(ctx context.Context, articleURI string, keywordID int64) (inserted bool, err error)
	ListUnread(ctx context.Context, limit int) ([]core.Alert, error)
	List(ctx context.Context, showRead bool) ([]core.Alert, error)
	MarkRead(ctx context.Context, id int64, read bool) error
	TrendCounts(ctx context.Context, since time.Time) (map[string]map[string]int, error) // group -> date -> count
}

// MediaBiasRepository owns mediabias + mediabias_settings.
type MediaBiasRepository interface {
	GetBySource(ctx context.Context, domain string) (*core.MediaBiasSource, error)
	Enable(ctx context.Context, id int64) error
	Upsert(ctx context.Context, m *core.MediaBiasSource) error
	Search(ctx context.Context, q string, limit int) ([]core.MediaBiasSource, error)
}

// SettingsRepository owns the keyword_monitor_settings/status singletons.
type SettingsRepository interface {
	GetMonitorSettings(ctx context.Context) (*core.KeywordMonitorSettings, error)
	SaveMonitorSettings(ctx context.Context, s *core.KeywordMonitorSettings) error
	GetMonitorStatus(ctx context.Context) (*core.KeywordMonitorStatus, error)
	SaveMonitorStatus(ctx context.Context, s *core.KeywordMonitorStatus) error
	// IncrementRequestsToday atomically increments the shared daily
	// counter and returns the post-increment value, resetting it first
	// if LastResetDate is not today (UTC).
	IncrementRequestsToday(ctx context.Context) (int, error)
}

// Database aggregates every repository plus lifecycle/transaction control.
type Database interface {
	Articles() ArticleRepository
	RawArticles() RawArticleRepository
	KeywordGroups() KeywordGroupRepository
	Keywords() KeywordRepository
	Alerts() AlertRepository
	MediaBias() MediaBiasRepository
	Settings() SettingsRepository

	Ping(ctx context.Context) error
	Close() error
}
