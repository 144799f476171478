package main

import (
	"context"
	"fmt"

	"newsmonitor/internal/analysiscache"
	"newsmonitor/internal/analyzer"
	"newsmonitor/internal/config"
	"newsmonitor/internal/ingest"
	"newsmonitor/internal/llm"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/mediabias"
	"newsmonitor/internal/metrics"
	"newsmonitor/internal/monitor"
	"newsmonitor/internal/persistence"
	"newsmonitor/internal/prompts"
	"newsmonitor/internal/relevance"
	"newsmonitor/internal/scrape"
	"newsmonitor/internal/search"
	"newsmonitor/internal/tasks"
	"newsmonitor/internal/vectorstore"
)

// deps bundles every collaborator the CLI commands need; built once from
// loaded config so serve/monitor/ingest commands share identical wiring.
type deps struct {
	cfg       *config.Config
	db        *persistence.PostgresDB
	monitor   *monitor.Monitor
	ingest    *ingest.Pipeline
	relevance *relevance.Calculator
	tasks     *tasks.Manager
	metrics   *metrics.Registry
	factory   *search.ProviderFactory
}

// factoryResolver adapts *search.ProviderFactory (which builds a
// Provider from a ProviderType) to monitor.ProviderResolver (which
// resolves a settings-configured provider name).
type factoryResolver struct {
	factory *search.ProviderFactory
}

// Resolve builds the provider with its daily request ceiling taken from
// the current settings row, so the ceiling follows daily_request_limit.
func (r *factoryResolver) Resolve(providerName string) (search.Provider, error) {
	f := *r.factory
	if settingsRepo, ok := f.Limiter.(persistence.SettingsRepository); ok {
		if settings, err := settingsRepo.GetMonitorSettings(context.Background()); err == nil {
			f.DailyLimit = settings.DailyRequestLimit
		}
	}
	return f.CreateProvider(search.ProviderType(providerName))
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	logger.SetLevel(cfg.Logging.Level)

	connStr := cfg.Database.ConnectionString
	if connStr == "" {
		return nil, fmt.Errorf("database.connection_string is required")
	}
	db, err := persistence.NewPostgresDB(connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	llmClient, err := llm.NewClient(ctx, cfg.AI.Gemini, cfg.Vector.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	promptRegistry := prompts.NewRegistry()

	cache, err := analysiscache.New(cfg.Cache.Directory, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("open analysis cache: %w", err)
	}

	az := analyzer.New(llmClient, promptRegistry, cache)
	rel := relevance.New(llmClient, promptRegistry)
	quality := ingest.NewQualityReview(llmClient, promptRegistry)
	bias := mediabias.New(db.MediaBias())

	batcher := scrape.NewBatcher(nil, scrape.NewFetcher(nil))

	embedder := llm.NewEmbedder(llmClient)
	vstore := vectorstore.NewPgVectorStore(db.DB(), embedder)
	vectors := vectorstore.NewAsync(vstore, int64(cfg.Ingest.MaxConcurrentBatches))

	pipeline := ingest.New(db, bias, batcher, az, rel, quality, vectors)

	factory := &search.ProviderFactory{
		NewsAPIKey:    cfg.Search.NewsAPI.APIKey,
		NewsAPIURL:    cfg.Search.NewsAPI.BaseURL,
		BlueskyHandle: cfg.Search.Bluesky.Handle,
		BlueskyAppKey: cfg.Search.Bluesky.AppKey,
		BlueskyURL:    cfg.Search.Bluesky.Endpoint,
		Limiter:       db.Settings(),
		DailyLimit:    0, // set per Resolve call from settings.DailyRequestLimit, not a static config value
	}

	mon := monitor.New(db, &factoryResolver{factory: factory})
	taskManager := tasks.New(cfg.Tasks.MaxConcurrent)
	reg := metrics.New()

	return &deps{
		cfg:       cfg,
		db:        db,
		monitor:   mon,
		ingest:    pipeline,
		relevance: rel,
		tasks:     taskManager,
		metrics:   reg,
		factory:   factory,
	}, nil
}

func (d *deps) Close() error {
	return d.db.Close()
}
