package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"

	"newsmonitor/internal/core"
	"newsmonitor/internal/persistence"
	"newsmonitor/internal/scrape"
)

// --- fake persistence.Database (articles + raw articles only matter here) ---

type fakeArticleRepo struct {
	byURI   map[string]*core.Article
	pending []core.Article
}

func (r *fakeArticleRepo) Upsert(_ context.Context, a *core.Article) error {
	cp := *a
	r.byURI[a.URI] = &cp
	return nil
}
func (r *fakeArticleRepo) Get(_ context.Context, uri string) (*core.Article, error) {
	if a, ok := r.byURI[uri]; ok {
		return a, nil
	}
	return nil, core.NewError("articles.Get", core.ErrKindNotFound, errors.New("not found"))
}
func (r *fakeArticleRepo) List(context.Context, persistence.ListOptions) ([]core.Article, error) {
	return nil, nil
}
func (r *fakeArticleRepo) Delete(context.Context, string) error { return nil }
func (r *fakeArticleRepo) GetRecent(context.Context, time.Time, int) ([]core.Article, error) {
	return nil, nil
}
func (r *fakeArticleRepo) ListUningestedWithUnreadAlerts(_ context.Context, limit int) ([]core.Article, error) {
	if limit > 0 && limit < len(r.pending) {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

type fakeRawArticleRepo struct {
	saved map[string]*core.RawArticle
	// fkViolations counts down; while > 0, Upsert returns a foreign-key
	// violation instead of saving, to exercise the direct-scrape retry.
	fkViolations int
}

func (r *fakeRawArticleRepo) Upsert(_ context.Context, a *core.RawArticle) error {
	if r.fkViolations > 0 {
		r.fkViolations--
		return &pq.Error{Code: "23503", Message: "insert or update on table \"raw_articles\" violates foreign key constraint"}
	}
	r.saved[a.URI] = a
	return nil
}
func (r *fakeRawArticleRepo) Get(context.Context, string) (*core.RawArticle, error) {
	return nil, core.NewError("raw.Get", core.ErrKindNotFound, errors.New("not found"))
}

type fakeDB struct {
	articles *fakeArticleRepo
	raw      *fakeRawArticleRepo
}

func (d *fakeDB) Articles() persistence.ArticleRepository       { return d.articles }
func (d *fakeDB) RawArticles() persistence.RawArticleRepository { return d.raw }
func (d *fakeDB) KeywordGroups() persistence.KeywordGroupRepository {
	panic("not used by ingest tests")
}
func (d *fakeDB) Keywords() persistence.KeywordRepository { panic("not used by ingest tests") }
func (d *fakeDB) Alerts() persistence.AlertRepository     { panic("not used by ingest tests") }
func (d *fakeDB) MediaBias() persistence.MediaBiasRepository {
	panic("not used by ingest tests")
}
func (d *fakeDB) Settings() persistence.SettingsRepository { panic("not used by ingest tests") }
func (d *fakeDB) Ping(context.Context) error               { return nil }
func (d *fakeDB) Close() error                             { return nil }

// --- fake collaborators ---

type fakeBias struct{ calls int }

func (f *fakeBias) EnrichArticle(context.Context, *core.Article) error {
	f.calls++
	return nil
}

type fakeFetcher struct {
	result       scrape.Result
	directResult scrape.Result
	directCalls  int
}

func (f *fakeFetcher) FetchAll(_ context.Context, urls []string) map[string]scrape.Result {
	out := make(map[string]scrape.Result, len(urls))
	for _, u := range urls {
		out[u] = f.result
	}
	return out
}

func (f *fakeFetcher) DirectScrape(context.Context, string) scrape.Result {
	f.directCalls++
	return f.directResult
}

type fakeAnalyzer struct{ calls int }

func (f *fakeAnalyzer) Analyze(context.Context, string, string, string, string, core.AnalysisConfig) (core.Analysis, error) {
	f.calls++
	return core.Analysis{Category: "Technology", Summary: "a summary"}, nil
}

type fakeRelevance struct{ result core.RelevanceResult }

func (f *fakeRelevance) Analyze(context.Context, string, string, string, string, []string) core.RelevanceResult {
	return f.result
}

type fakeQuality struct{ review core.QualityReview }

func (f *fakeQuality) Review(context.Context, string, string, string) core.QualityReview {
	return f.review
}

func seedDB() *fakeDB {
	return &fakeDB{
		articles: &fakeArticleRepo{byURI: map[string]*core.Article{}, pending: []core.Article{
			{URI: "https://example.com/a", Title: "A", Summary: "a summary", NewsSource: "example.com"},
		}},
		raw: &fakeRawArticleRepo{saved: map[string]*core.RawArticle{}},
	}
}

func newPipeline(db *fakeDB, relResult core.RelevanceResult, qualityEnabled bool, review core.QualityReview) *Pipeline {
	return &Pipeline{
		db:        db,
		bias:      &fakeBias{},
		fetcher:   &fakeFetcher{result: scrape.Result{Content: "scraped body", Success: true}},
		analyzer:  &fakeAnalyzer{},
		relevance: &fakeRelevance{result: relResult},
		quality:   &fakeQuality{review: review},
	}
}

func TestRunRejectsBelowRelevanceThreshold(t *testing.T) {
	db := seedDB()
	p := newPipeline(db, core.RelevanceResult{TopicAlignmentScore: 0.1}, false, core.QualityReview{})
	cfg := Config{BatchSize: 5, MaxConcurrentBatches: 2, MinRelevanceThreshold: 0.9}

	summary, err := p.Run(context.Background(), "AI", []string{"llm"}, cfg, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.RejectedRelevance != 1 || summary.Ingested != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	stored := db.articles.byURI["https://example.com/a"]
	if stored.IngestStatus != core.IngestStatusFailed {
		t.Errorf("expected failed ingest status, got %q", stored.IngestStatus)
	}
}

func TestRunApprovesAboveThresholdWithoutQualityControl(t *testing.T) {
	db := seedDB()
	p := newPipeline(db, core.RelevanceResult{TopicAlignmentScore: 0.8}, false, core.QualityReview{})
	cfg := Config{BatchSize: 5, MaxConcurrentBatches: 2, MinRelevanceThreshold: 0.1}

	summary, err := p.Run(context.Background(), "AI", []string{"llm"}, cfg, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Ingested != 1 {
		t.Errorf("expected 1 ingested, got %+v", summary)
	}
	stored := db.articles.byURI["https://example.com/a"]
	if stored.IngestStatus != core.IngestStatusApproved {
		t.Errorf("expected approved status, got %q", stored.IngestStatus)
	}
	if stored.Category != "Technology" {
		t.Errorf("expected analysis to be applied, got %+v", stored)
	}
	if _, ok := db.raw.saved["https://example.com/a"]; !ok {
		t.Errorf("expected raw content to be persisted")
	}
}

func TestRunRejectsOnQualityReviewReject(t *testing.T) {
	db := seedDB()
	p := newPipeline(db, core.RelevanceResult{TopicAlignmentScore: 0.8}, true,
		core.QualityReview{Recommendation: core.RecommendationReject, Explanation: "cookie banner"})
	cfg := Config{BatchSize: 5, MaxConcurrentBatches: 2, MinRelevanceThreshold: 0.1, QualityControlEnabled: true}

	summary, err := p.Run(context.Background(), "AI", []string{"llm"}, cfg, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.RejectedQuality != 1 || summary.Ingested != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestRunHoldsNonApprovedWhenAutoSaveApprovedOnly(t *testing.T) {
	db := seedDB()
	p := newPipeline(db, core.RelevanceResult{TopicAlignmentScore: 0.8}, true,
		core.QualityReview{Recommendation: core.RecommendationReview, Explanation: "ambiguous"})
	cfg := Config{
		BatchSize: 5, MaxConcurrentBatches: 2, MinRelevanceThreshold: 0.1,
		QualityControlEnabled: true, AutoSaveApprovedOnly: true,
	}

	summary, err := p.Run(context.Background(), "AI", []string{"llm"}, cfg, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.RejectedQuality != 1 {
		t.Errorf("expected the review-recommendation article to be held, got %+v", summary)
	}
}

func TestRunToleratesScrapeFailureAndFallsBackToSummary(t *testing.T) {
	db := seedDB()
	p := newPipeline(db, core.RelevanceResult{TopicAlignmentScore: 0.8}, false, core.QualityReview{})
	p.fetcher = &fakeFetcher{result: scrape.Result{Content: "fetch error", Success: false}}
	cfg := Config{BatchSize: 5, MaxConcurrentBatches: 2, MinRelevanceThreshold: 0.1}

	summary, err := p.Run(context.Background(), "AI", []string{"llm"}, cfg, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Ingested != 1 {
		t.Errorf("expected scrape failure to still result in ingestion via summary fallback, got %+v", summary)
	}
}

func TestRunRetriesRawContentViaDirectScrapeOnForeignKeyConflict(t *testing.T) {
	db := seedDB()
	db.raw.fkViolations = 1
	p := newPipeline(db, core.RelevanceResult{TopicAlignmentScore: 0.8}, false, core.QualityReview{})
	fetcher := &fakeFetcher{
		result:       scrape.Result{Content: "scraped body", Success: true},
		directResult: scrape.Result{Content: "direct scraped body", Success: true},
	}
	p.fetcher = fetcher
	cfg := Config{BatchSize: 5, MaxConcurrentBatches: 2, MinRelevanceThreshold: 0.1}

	summary, err := p.Run(context.Background(), "AI", []string{"llm"}, cfg, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Ingested != 1 {
		t.Errorf("expected the article to still be ingested after the retry, got %+v", summary)
	}
	if fetcher.directCalls != 1 {
		t.Errorf("expected exactly one DirectScrape call, got %d", fetcher.directCalls)
	}
	saved, ok := db.raw.saved["https://example.com/a"]
	if !ok {
		t.Fatalf("expected raw content to be saved after the direct-scrape retry")
	}
	if saved.RawMarkdown != "direct scraped body" {
		t.Errorf("expected raw content from the direct scrape, got %q", saved.RawMarkdown)
	}
}

func TestRunRejectsConcurrentInvocation(t *testing.T) {
	db := seedDB()
	p := newPipeline(db, core.RelevanceResult{TopicAlignmentScore: 0.8}, false, core.QualityReview{})
	p.running.Store(true)
	cfg := Config{BatchSize: 5, MaxConcurrentBatches: 2, MinRelevanceThreshold: 0.1}

	if _, err := p.Run(context.Background(), "AI", nil, cfg, 10); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRunHandlesEmptyPendingSet(t *testing.T) {
	db := seedDB()
	db.articles.pending = nil
	p := newPipeline(db, core.RelevanceResult{}, false, core.QualityReview{})
	cfg := Config{BatchSize: 5, MaxConcurrentBatches: 2}

	summary, err := p.Run(context.Background(), "AI", nil, cfg, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Processed != 0 {
		t.Errorf("expected no articles processed, got %+v", summary)
	}
}
