package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

type bulkAnalysisRequest struct {
	ArticleURIs []string `json:"article_uris"`
	Topic       string   `json:"topic"`
	Keywords    []string `json:"keywords"`
}

// handleBulkAnalysis handles POST /api/background-tasks/bulk-analysis: a
// re-scoring pass over a caller-supplied set of articles, run as a
// background task rather than the synchronous analyze-relevance endpoint
// so a large batch doesn't tie up the request.
func (s *Server) handleBulkAnalysis(w http.ResponseWriter, r *http.Request) {
	var req bulkAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	taskID := s.tasks.Create("bulk-analysis", len(req.ArticleURIs), map[string]any{"topic": req.Topic})
	s.tasks.Run(context.Background(), taskID, func(ctx context.Context, progress func(int, string)) (any, error) {
		analyzed, updated := 0, 0
		for i, uri := range req.ArticleURIs {
			article, err := s.db.Articles().Get(ctx, uri)
			if err != nil {
				progress(i+1, uri)
				continue
			}
			analyzed++

			content := article.Summary
			if raw, err := s.db.RawArticles().Get(ctx, uri); err == nil && raw != nil {
				content = raw.RawMarkdown
			}

			result := s.relevance.Analyze(ctx, article.Title, article.NewsSource, content, req.Topic, req.Keywords)
			applyRelevanceResult(article, result)
			if err := s.db.Articles().Upsert(ctx, article); err == nil {
				updated++
			}
			progress(i+1, uri)
		}
		return map[string]int{"analyzed_count": analyzed, "updated_count": updated}, nil
	})

	s.respondJSON(w, http.StatusOK, map[string]any{"task_id": taskID})
}

type bulkSaveRequest struct {
	Articles []core.Article `json:"articles"`
}

// handleBulkSave handles POST /api/background-tasks/bulk-save: persists
// a caller-supplied batch of fully-formed articles (e.g. from a manual
// research workflow upstream of the monitor), as a background task.
func (s *Server) handleBulkSave(w http.ResponseWriter, r *http.Request) {
	var req bulkSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	taskID := s.tasks.Create("bulk-save", len(req.Articles), nil)
	s.tasks.Run(context.Background(), taskID, func(ctx context.Context, progress func(int, string)) (any, error) {
		saved, failed := 0, 0
		for i := range req.Articles {
			article := req.Articles[i]
			if err := s.db.Articles().Upsert(ctx, &article); err != nil {
				logger.Warn("server: bulk-save failed for article", "uri", article.URI, "error", err.Error())
				failed++
			} else {
				saved++
			}
			progress(i+1, article.URI)
		}
		return map[string]int{"saved_count": saved, "error_count": failed}, nil
	})

	s.respondJSON(w, http.StatusOK, map[string]any{"task_id": taskID})
}

// handleGetTask handles GET /api/background-tasks/task/{task_id}.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")
	task, ok := s.tasks.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "task not found")
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

// handleCancelTask handles DELETE /api/background-tasks/task/{task_id}.
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")
	if !s.tasks.Cancel(id) {
		s.respondError(w, http.StatusNotFound, "task not found or already finished")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
