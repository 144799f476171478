package server

import (
	"context"
	"encoding/json"
	"net/http"

	"newsmonitor/internal/core"
	"newsmonitor/internal/ingest"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/persistence"
)

type autoIngestRunRequest struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
	Limit    int      `json:"limit"`
}

// handleAutoIngestRun handles POST /api/auto-ingest/run: starts a run as
// a background task and returns immediately with a status URL, since a
// full run over a large pending set can take minutes.
func (s *Server) handleAutoIngestRun(w http.ResponseWriter, r *http.Request) {
	var req autoIngestRunRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	ctx := r.Context()
	settings, err := s.db.Settings().GetMonitorSettings(ctx)
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to load settings")
		return
	}

	pending, err := s.db.Articles().ListUningestedWithUnreadAlerts(ctx, req.Limit)
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to count pending articles")
		return
	}

	cfg := ingestConfigFromSettings(settings)
	taskID := s.tasks.Create("auto-ingest-run", len(pending), map[string]any{"topic": req.Topic})
	s.tasks.Run(context.Background(), taskID, func(taskCtx context.Context, progress func(int, string)) (any, error) {
		summary, err := s.ingest.Run(taskCtx, req.Topic, req.Keywords, cfg, req.Limit)
		progress(summary.Processed, "")
		return summary, err
	})

	s.respondJSON(w, http.StatusOK, map[string]any{
		"task_id":        taskID,
		"total_articles": len(pending),
		"status_url":     "/api/background-tasks/task/" + taskID,
	})
}

func ingestConfigFromSettings(settings *core.KeywordMonitorSettings) ingest.Config {
	return ingest.Config{
		BatchSize:             settings.BatchSize,
		MaxConcurrentBatches:  settings.MaxConcurrentBatches,
		MinRelevanceThreshold: settings.MinRelevanceThreshold,
		QualityControlEnabled: settings.QualityControlEnabled,
		AutoSaveApprovedOnly:  settings.AutoSaveApprovedOnly,
		DefaultLLMModel:       settings.DefaultLLMModel,
	}
}

// handleAutoIngestStatus handles GET /api/auto-ingest/status.
func (s *Server) handleAutoIngestStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := s.db.Settings().GetMonitorSettings(ctx)
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to load settings")
		return
	}
	status, err := s.db.Settings().GetMonitorStatus(ctx)
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to load status")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"auto_ingest_enabled": settings.AutoIngestEnabled,
		"last_run_time":       status.LastRunTime,
		"last_error":          status.LastError,
	})
}

// handleAutoIngestPending handles GET /api/auto-ingest/pending?limit=N.
func (s *Server) handleAutoIngestPending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	articles, err := s.db.Articles().ListUningestedWithUnreadAlerts(r.Context(), limit)
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to load pending articles")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"articles": articles, "count": len(articles)})
}

// handleAutoIngestStats handles GET /api/auto-ingest/stats: a coarse
// breakdown of known articles by ingest_status.
func (s *Server) handleAutoIngestStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	articles, err := s.db.Articles().List(ctx, persistence.ListOptions{Limit: 1000})
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to load articles")
		return
	}

	counts := map[string]int{}
	for _, a := range articles {
		counts[string(a.IngestStatus)]++
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"by_status": counts, "total": len(articles)})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			logger.Warn("server: ignoring non-numeric query parameter", "key", key, "value", raw)
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}
