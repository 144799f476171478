// Package server exposes C1-C12 over HTTP (spec §6.1): keyword-monitor
// settings and triggers, alert review, auto-ingest control, background
// task polling, and a couple of WebSocket channels for push progress.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"newsmonitor/internal/config"
	"newsmonitor/internal/core"
	"newsmonitor/internal/ingest"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/metrics"
	"newsmonitor/internal/monitor"
	"newsmonitor/internal/persistence"
	"newsmonitor/internal/relevance"
	"newsmonitor/internal/search"
	"newsmonitor/internal/tasks"
)

// Server wires the persistence layer and every pipeline component
// (monitor, ingest, tasks) behind a chi router.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	db        persistence.Database
	cfg       config.Config
	monitor   *monitor.Monitor
	ingest    *ingest.Pipeline
	relevance *relevance.Calculator
	tasks     *tasks.Manager
	metrics   *metrics.Registry
	factory   *search.ProviderFactory
}

// New builds a Server around its collaborators.
func New(
	db persistence.Database,
	cfg config.Config,
	mon *monitor.Monitor,
	pipeline *ingest.Pipeline,
	rel *relevance.Calculator,
	taskManager *tasks.Manager,
	reg *metrics.Registry,
	factory *search.ProviderFactory,
) *Server {
	s := &Server{
		db:        db,
		cfg:       cfg,
		monitor:   mon,
		ingest:    pipeline,
		relevance: rel,
		tasks:     taskManager,
		metrics:   reg,
		factory:   factory,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router = chi.NewRouter()

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(securityHeaders)

	if s.cfg.Server.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.Server.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	if s.cfg.Server.RateLimit.Enabled {
		s.router.Use(middleware.Throttle(s.cfg.Server.RateLimit.RequestsPerMinute))
	}
}

// securityHeaders sets a conservative default header set on every
// response; there is no templated HTML surface here to scope a CSP to.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/metrics", s.metrics.Handler().ServeHTTP)

	s.router.Route("/api/keyword-monitor", func(r chi.Router) {
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handlePostSettings)
		r.Post("/check-now", s.handleCheckNow)
		r.Get("/alerts", s.handleListAlerts)
		r.Post("/alerts/{id}/read", s.handleMarkAlertRead(true))
		r.Post("/alerts/{id}/unread", s.handleMarkAlertRead(false))
		r.Get("/trends", s.handleTrends)
		r.Post("/analyze-relevance", s.handleAnalyzeRelevance)
		r.Post("/auto-ingest/enable", s.handleAutoIngestToggle(true))
		r.Post("/auto-ingest/disable", s.handleAutoIngestToggle(false))
	})

	s.router.Route("/api/auto-ingest", func(r chi.Router) {
		r.Post("/run", s.handleAutoIngestRun)
		r.Get("/status", s.handleAutoIngestStatus)
		r.Get("/pending", s.handleAutoIngestPending)
		r.Post("/enable", s.handleAutoIngestToggle(true))
		r.Post("/disable", s.handleAutoIngestToggle(false))
		r.Get("/stats", s.handleAutoIngestStats)
	})

	s.router.Route("/api/background-tasks", func(r chi.Router) {
		r.Post("/bulk-analysis", s.handleBulkAnalysis)
		r.Post("/bulk-save", s.handleBulkSave)
		r.Get("/task/{task_id}", s.handleGetTask)
		r.Delete("/task/{task_id}", s.handleCancelTask)
	})

	s.router.Get("/ws/bulk-process/{job_id}", s.handleWSBulkProcess)
	s.router.Get("/ws/progress/{topic_id}", s.handleWSProgress)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	status := http.StatusOK
	if err := s.db.Ping(r.Context()); err != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, map[string]any{
		"status": map[int]string{http.StatusOK: "healthy", http.StatusServiceUnavailable: "unhealthy"}[status],
		"checks": checks,
	})
}

func (s *Server) Start() error {
	logger.Info("server: listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("server: failed to encode response", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"error": map[string]any{
			"status":  status,
			"message": message,
		},
	})
}

// statusFromError maps a core.Error's Kind to an HTTP status; a plain
// (non-core) error is treated as internal.
func statusFromError(err error) int {
	var ce *core.Error
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError
	}
	switch ce.Kind {
	case core.ErrKindValidation:
		return http.StatusBadRequest
	case core.ErrKindNotFound:
		return http.StatusNotFound
	case core.ErrKindConflict:
		return http.StatusConflict
	case core.ErrKindRateLimited:
		return http.StatusTooManyRequests
	case core.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case core.ErrKindProviderErr, core.ErrKindVectorErr, core.ErrKindCacheErr:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
