// Package monitor implements C10: the keyword-monitor tick. On each tick
// it enumerates enabled keywords, searches for each via a provider
// collector, inserts any newly-seen article, and records a
// keyword-to-article alert — all gated by the shared daily request
// limit enforced inside internal/search.
package monitor

import (
	"context"
	"fmt"
	"time"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/persistence"
	"newsmonitor/internal/search"
)

// ProviderResolver maps a settings-configured provider name (e.g.
// "newsapi") to a ready-to-use search.Provider. Kept as an interface so
// the monitor doesn't need to know how providers are constructed or
// wrapped (breaker, rate limit).
type ProviderResolver interface {
	Resolve(providerName string) (search.Provider, error)
}

type Monitor struct {
	db       persistence.Database
	resolver ProviderResolver
}

func New(db persistence.Database, resolver ProviderResolver) *Monitor {
	return &Monitor{db: db, resolver: resolver}
}

// TickResult summarizes one pass for logging/testing: how many keywords
// were processed before the tick was aborted (if it was).
type TickResult struct {
	KeywordsChecked int
	ArticlesFound   int
	AlertsInserted  int
	Aborted         bool
	AbortReason     string
}

// Tick runs one monitor pass. groupID == 0 processes every enabled
// keyword across all groups; a non-zero groupID scopes the pass to a
// single group, the shape a manual trigger uses.
func (m *Monitor) Tick(ctx context.Context, groupID int64) (TickResult, error) {
	var result TickResult

	settings, err := m.db.Settings().GetMonitorSettings(ctx)
	if err != nil {
		return result, fmt.Errorf("monitor: failed to load settings: %w", err)
	}

	provider, err := m.resolver.Resolve(settings.Provider)
	if err != nil {
		return result, fmt.Errorf("monitor: failed to resolve provider %q: %w", settings.Provider, err)
	}

	keywords, err := m.db.Keywords().ListEnabled(ctx, groupID)
	if err != nil {
		return result, fmt.Errorf("monitor: failed to list keywords: %w", err)
	}

	groupTopics := make(map[int64]string)
	now := time.Now().UTC()

	for _, keyword := range keywords {
		topic, err := m.groupTopic(ctx, groupTopics, keyword.GroupID)
		if err != nil {
			logger.Warn("monitor: failed to resolve group topic, skipping keyword", "keyword_id", keyword.ID, "error", err.Error())
			continue
		}

		found, err := provider.Search(ctx, keyword.Keyword, search.Config{
			Topic:      topic,
			MaxResults: settings.PageSize,
			Since:      keyword.LastChecked,
			Language:   settings.Language,
		})
		if err != nil {
			// Per §4.7: a rate-limit or provider error aborts the whole
			// tick — subsequent keywords are skipped, not retried.
			reason := err.Error()
			logger.Warn("monitor: tick aborted by provider error", "keyword_id", keyword.ID, "error", reason)
			m.recordError(ctx, reason)
			result.Aborted = true
			result.AbortReason = reason
			return result, nil
		}

		result.KeywordsChecked++
		result.ArticlesFound += len(found)

		for _, article := range found {
			if err := m.ensureArticle(ctx, article, topic); err != nil {
				logger.Warn("monitor: failed to upsert discovered article", "uri", article.URL, "error", err.Error())
				continue
			}
			inserted, err := m.db.Alerts().Insert(ctx, article.URL, keyword.ID)
			if err != nil {
				logger.Warn("monitor: failed to insert alert", "uri", article.URL, "keyword_id", keyword.ID, "error", err.Error())
				continue
			}
			if inserted {
				result.AlertsInserted++
			}
		}

		if err := m.db.Keywords().UpdateLastChecked(ctx, keyword.ID, now); err != nil {
			logger.Warn("monitor: failed to update last_checked", "keyword_id", keyword.ID, "error", err.Error())
		}
	}

	status, err := m.db.Settings().GetMonitorStatus(ctx)
	if err != nil {
		status = &core.KeywordMonitorStatus{}
	}
	status.LastRunTime = &now
	status.LastError = ""
	if err := m.db.Settings().SaveMonitorStatus(ctx, status); err != nil {
		logger.Warn("monitor: failed to save status after tick", "error", err.Error())
	}

	return result, nil
}

// groupTopic resolves and caches a group's topic for the duration of a
// single tick, since many keywords typically share a group.
func (m *Monitor) groupTopic(ctx context.Context, cache map[int64]string, groupID int64) (string, error) {
	if topic, ok := cache[groupID]; ok {
		return topic, nil
	}
	group, err := m.db.KeywordGroups().Get(ctx, groupID)
	if err != nil {
		return "", err
	}
	cache[groupID] = group.Topic
	return group.Topic, nil
}

// ensureArticle inserts a minimal article record if uri is unknown. An
// already-known article is left untouched — enrichment happens later,
// in the auto-ingest pipeline (C11), not here.
func (m *Monitor) ensureArticle(ctx context.Context, result search.Result, topic string) error {
	if _, err := m.db.Articles().Get(ctx, result.URL); err == nil {
		return nil
	}
	return m.db.Articles().Upsert(ctx, &core.Article{
		URI:             result.URL,
		Title:           result.Title,
		NewsSource:      result.Source,
		PublicationDate: result.PublishedDate,
		Summary:         result.Summary,
		Topic:           topic,
	})
}

func (m *Monitor) recordError(ctx context.Context, reason string) {
	status, err := m.db.Settings().GetMonitorStatus(ctx)
	if err != nil {
		status = &core.KeywordMonitorStatus{}
	}
	status.LastError = reason
	if err := m.db.Settings().SaveMonitorStatus(ctx, status); err != nil {
		logger.Warn("monitor: failed to save error status", "error", err.Error())
	}
}

// Run ticks on the interval carried in KeywordMonitorSettings
// (check_interval x interval_unit), re-reading settings every cycle so a
// live interval change takes effect on the next tick without a restart.
func (m *Monitor) Run(ctx context.Context, fallbackInterval time.Duration) {
	timer := time.NewTimer(m.nextInterval(ctx, fallbackInterval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := m.Tick(ctx, 0); err != nil {
				logger.Error("monitor: tick failed", err)
			}
			timer.Reset(m.nextInterval(ctx, fallbackInterval))
		}
	}
}

func (m *Monitor) nextInterval(ctx context.Context, fallback time.Duration) time.Duration {
	settings, err := m.db.Settings().GetMonitorSettings(ctx)
	if err != nil || settings.CheckInterval <= 0 {
		return fallback
	}
	switch settings.IntervalUnit {
	case "seconds":
		return time.Duration(settings.CheckInterval) * time.Second
	case "hours":
		return time.Duration(settings.CheckInterval) * time.Hour
	default: // "minutes", and any unrecognized unit
		return time.Duration(settings.CheckInterval) * time.Minute
	}
}
