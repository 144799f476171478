package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

// handleGetSettings handles GET /api/keyword-monitor/settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.db.Settings().GetMonitorSettings(r.Context())
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to load settings")
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

// handlePostSettings handles POST /api/keyword-monitor/settings.
func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var settings core.KeywordMonitorSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}
	if err := s.db.Settings().SaveMonitorSettings(r.Context(), &settings); err != nil {
		s.respondError(w, statusFromError(err), "failed to save settings")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

type checkNowRequest struct {
	Topic   string `json:"topic"`
	GroupID int64  `json:"group_id"`
}

// handleCheckNow handles POST /api/keyword-monitor/check-now. A group
// whose enabled-keyword count exceeds manual_trigger_threshold runs as a
// background task (spec §6.1) instead of inline, so the request doesn't
// block on a potentially long provider fan-out.
func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	var req checkNowRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	ctx := r.Context()

	totalKeywords := 0
	if req.GroupID != 0 {
		keywords, err := s.db.Keywords().ListEnabled(ctx, req.GroupID)
		if err != nil {
			s.respondError(w, statusFromError(err), "failed to count keywords")
			return
		}
		totalKeywords = len(keywords)
	}

	if totalKeywords > s.cfg.Monitor.ManualTriggerThreshold {
		groupID := req.GroupID
		taskID := s.tasks.Create("keyword-check", totalKeywords, map[string]any{"group_id": groupID, "topic": req.Topic})
		s.tasks.Run(context.Background(), taskID, func(taskCtx context.Context, progress func(int, string)) (any, error) {
			result, err := s.monitor.Tick(taskCtx, groupID)
			if err != nil {
				return nil, err
			}
			progress(result.KeywordsChecked, "")
			return result, nil
		})
		s.respondJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"task_id":        taskID,
			"total_keywords": totalKeywords,
		})
		return
	}

	result, err := s.monitor.Tick(ctx, req.GroupID)
	if err != nil {
		s.respondError(w, statusFromError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"new_articles": result.ArticlesFound,
	})
}

// handleListAlerts handles GET /api/keyword-monitor/alerts?show_read=bool.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	showRead, _ := strconv.ParseBool(r.URL.Query().Get("show_read"))
	alerts, err := s.db.Alerts().List(r.Context(), showRead)
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to load alerts")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// handleMarkAlertRead returns a handler for both .../{id}/read and
// .../{id}/unread, parameterized by the target read state.
func (s *Server) handleMarkAlertRead(read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid alert id")
			return
		}
		if err := s.db.Alerts().MarkRead(r.Context(), id, read); err != nil {
			s.respondError(w, statusFromError(err), "failed to update alert")
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// handleTrends handles GET /api/keyword-monitor/trends: per-group daily
// alert counts over a 7-day window.
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	since := time.Now().UTC().AddDate(0, 0, -7)
	counts, err := s.db.Alerts().TrendCounts(r.Context(), since)
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to load trends")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"trends": counts})
}

type analyzeRelevanceRequest struct {
	ArticleURIs []string `json:"article_uris"`
	ModelName   string   `json:"model_name"`
	Topic       string   `json:"topic"`
	GroupID     int64    `json:"group_id"`
}

// handleAnalyzeRelevance handles POST /api/keyword-monitor/analyze-relevance:
// re-scores a caller-supplied set of already-known articles against topic
// and keywords, persisting the updated scores.
func (s *Server) handleAnalyzeRelevance(w http.ResponseWriter, r *http.Request) {
	var req analyzeRelevanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ctx := r.Context()
	keywords, err := s.groupKeywords(ctx, req.GroupID)
	if err != nil {
		s.respondError(w, statusFromError(err), "failed to load group keywords")
		return
	}

	analyzed, updated := 0, 0
	for _, uri := range req.ArticleURIs {
		article, err := s.db.Articles().Get(ctx, uri)
		if err != nil {
			logger.Warn("server: analyze-relevance skipping unknown article", "uri", uri)
			continue
		}
		analyzed++

		content := article.Summary
		if raw, err := s.db.RawArticles().Get(ctx, uri); err == nil && raw != nil {
			content = raw.RawMarkdown
		}

		result := s.relevance.Analyze(ctx, article.Title, article.NewsSource, content, req.Topic, keywords)
		applyRelevanceResult(article, result)
		if err := s.db.Articles().Upsert(ctx, article); err != nil {
			logger.Warn("server: failed to persist re-scored article", "uri", uri, "error", err.Error())
			continue
		}
		updated++
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"analyzed_count": analyzed,
		"updated_count":  updated,
	})
}

func (s *Server) groupKeywords(ctx context.Context, groupID int64) ([]string, error) {
	if groupID == 0 {
		return nil, nil
	}
	keywords, err := s.db.Keywords().ListEnabled(ctx, groupID)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keywords))
	for i, k := range keywords {
		out[i] = k.Keyword
	}
	return out, nil
}

func applyRelevanceResult(a *core.Article, r core.RelevanceResult) {
	a.TopicAlignmentScore = r.TopicAlignmentScore
	a.KeywordRelevanceScore = r.KeywordRelevanceScore
	a.ConfidenceScore = r.ConfidenceScore
	a.OverallMatchExplanation = r.OverallMatchExplanation
	a.ExtractedArticleTopics = r.ExtractedArticleTopics
	a.ExtractedArticleKeywords = r.ExtractedArticleKeywords
}

// handleAutoIngestToggle returns a handler flipping auto_ingest_enabled
// in the singleton settings row. Mounted under both
// /api/keyword-monitor/auto-ingest/{enable,disable} and
// /api/auto-ingest/{enable,disable}, per spec §6.1.
func (s *Server) handleAutoIngestToggle(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		settings, err := s.db.Settings().GetMonitorSettings(ctx)
		if err != nil {
			s.respondError(w, statusFromError(err), "failed to load settings")
			return
		}
		settings.AutoIngestEnabled = enabled
		if err := s.db.Settings().SaveMonitorSettings(ctx, settings); err != nil {
			s.respondError(w, statusFromError(err), "failed to save settings")
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
