// Package ingest implements C11: the auto-ingest pipeline that turns a
// pending alert into a fully enriched, scored, and persisted article. A
// run processes every alerted-but-uningested article in batches, running
// batches concurrently (bounded by max_concurrent_batches) while keeping
// the steps within a single article strictly ordered: bias enrichment,
// scrape, analyze, relevance, quality review, persist, vector index
// (spec §4.8, §5).
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"newsmonitor/internal/analyzer"
	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/mediabias"
	"newsmonitor/internal/persistence"
	"newsmonitor/internal/relevance"
	"newsmonitor/internal/scrape"
	"newsmonitor/internal/vectorstore"
)

// foreignKeyViolation is the Postgres SQLSTATE for a foreign-key
// constraint violation (raw_articles.uri references articles.uri).
const foreignKeyViolation = "23503"

// QualityReviewer scores scraped content quality (§4.8.1). Defined here,
// not in package relevance, since it is an ingest-only concern.
type QualityReviewer interface {
	Review(ctx context.Context, title, source, content string) core.QualityReview
}

// The remaining collaborators are narrowed to the single method the
// pipeline calls, mirroring the Generator pattern used throughout this
// module (internal/analyzer, internal/relevance) so fakes can stand in
// for *analyzer.Analyzer, *relevance.Calculator, *mediabias.Registry,
// *scrape.Batcher, and *vectorstore.Async in tests.

type BiasEnricher interface {
	EnrichArticle(ctx context.Context, article *core.Article) error
}

type ContentFetcher interface {
	FetchAll(ctx context.Context, urls []string) map[string]scrape.Result
	DirectScrape(ctx context.Context, rawURL string) scrape.Result
}

type ArticleAnalyzer interface {
	Analyze(ctx context.Context, text, title, source, uri string, cfg core.AnalysisConfig) (core.Analysis, error)
}

type RelevanceScorer interface {
	Analyze(ctx context.Context, title, source, content, topic string, keywords []string) core.RelevanceResult
}

type VectorIndexer interface {
	Upsert(ctx context.Context, article *core.Article, rawText string) error
}

// Config carries the subset of core.KeywordMonitorSettings the pipeline
// needs, resolved once per run rather than re-read per article.
type Config struct {
	BatchSize             int
	MaxConcurrentBatches  int
	MinRelevanceThreshold float64
	QualityControlEnabled bool
	AutoSaveApprovedOnly  bool
	DefaultLLMModel       string
}

// ArticleResult reports the per-article outcome of a run, in the order
// processed within its batch.
type ArticleResult struct {
	URI    string
	Status core.IngestStatus
	Error  string
}

// Summary is the result of one Run call.
type Summary struct {
	Processed         int
	Ingested          int
	RejectedRelevance int
	RejectedQuality   int
	Errors            int
	Details           []ArticleResult
}

// Pipeline wires the C11 steps together.
type Pipeline struct {
	db        persistence.Database
	bias      BiasEnricher
	fetcher   ContentFetcher
	analyzer  ArticleAnalyzer
	relevance RelevanceScorer
	quality   QualityReviewer
	vectors   VectorIndexer

	running atomic.Bool
}

func New(
	db persistence.Database,
	bias *mediabias.Registry,
	fetcher *scrape.Batcher,
	az *analyzer.Analyzer,
	rel *relevance.Calculator,
	quality QualityReviewer,
	vectors *vectorstore.Async,
) *Pipeline {
	return &Pipeline{
		db:        db,
		bias:      bias,
		fetcher:   fetcher,
		analyzer:  az,
		relevance: rel,
		quality:   quality,
		vectors:   vectors,
	}
}

// ErrAlreadyRunning is returned when Run is called while a prior run on
// this Pipeline has not yet finished (spec §5: at most one auto-ingest
// run at a time).
var ErrAlreadyRunning = core.NewError("ingest.Run", core.ErrKindConflict, fmt.Errorf("an auto-ingest run is already in progress"))

// Run loads up to limit pending articles (those with an unread alert and
// not yet ingested) and processes them. Re-running over an already
// processed article is a no-op in effect: its ingest_status is not
// pending, so a fresh call to ListUningestedWithUnreadAlerts won't
// surface it again once the alert is read or the article is ingested.
func (p *Pipeline) Run(ctx context.Context, topic string, keywords []string, cfg Config, limit int) (Summary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Summary{}, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxConcurrentBatches <= 0 {
		cfg.MaxConcurrentBatches = 1
	}

	articles, err := p.db.Articles().ListUningestedWithUnreadAlerts(ctx, limit)
	if err != nil {
		return Summary{}, fmt.Errorf("ingest: failed to list pending articles: %w", err)
	}

	batches := chunk(articles, cfg.BatchSize)

	var mu atomicSummary
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrentBatches)

	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			for _, article := range batch {
				article := article
				result := p.processOne(gctx, &article, topic, keywords, cfg)
				mu.add(result)
			}
			return nil
		})
	}

	// Errors from individual articles never abort the run; g.Wait only
	// surfaces context cancellation from the caller.
	if err := g.Wait(); err != nil {
		return mu.snapshot(), err
	}

	return mu.snapshot(), nil
}

// processOne runs the full per-article pipeline in the fixed order
// required by §5: bias, scrape, analyze, relevance, decision, persist,
// vector index. Every step but relevance-threshold and quality rejection
// tolerates failure and continues with what it has.
func (p *Pipeline) processOne(ctx context.Context, article *core.Article, topic string, keywords []string, cfg Config) ArticleResult {
	if err := p.bias.EnrichArticle(ctx, article); err != nil {
		logger.Warn("ingest: bias enrichment failed", "uri", article.URI, "error", err.Error())
	}

	scraped := p.fetcher.FetchAll(ctx, []string{article.URI})[article.URI]
	content := scraped.Content
	if !scraped.Success {
		logger.Warn("ingest: scrape failed, continuing with summary only", "uri", article.URI, "reason", scraped.Content)
		content = article.Summary
	}
	content = truncate(content, core.MaxRawContentChars)

	if content != "" {
		raw := &core.RawArticle{URI: article.URI, RawMarkdown: content, Topic: topic}
		if err := p.db.RawArticles().Upsert(ctx, raw); err != nil {
			if !isForeignKeyViolation(err) {
				logger.Warn("ingest: failed to persist raw content", "uri", article.URI, "error", err.Error())
			} else {
				logger.Warn("ingest: raw content upsert hit a foreign-key conflict under topic, retrying with a direct scrape", "uri", article.URI, "topic", topic)
				direct := p.fetcher.DirectScrape(ctx, article.URI)
				if direct.Success {
					raw.RawMarkdown = truncate(direct.Content, core.MaxRawContentChars)
					if retryErr := p.db.RawArticles().Upsert(ctx, raw); retryErr != nil {
						logger.Warn("ingest: raw content retry after direct scrape also failed", "uri", article.URI, "error", retryErr.Error())
					}
				}
			}
		}
	}

	analysis, err := p.analyzer.Analyze(ctx, content, article.Title, article.NewsSource, article.URI, core.DefaultAnalysisConfig())
	if err != nil {
		logger.Warn("ingest: analysis failed", "uri", article.URI, "error", err.Error())
	} else {
		applyAnalysis(article, analysis)
	}

	rel := p.relevance.Analyze(ctx, article.Title, article.NewsSource, content, topic, keywords)
	applyRelevance(article, rel)

	if article.TopicAlignmentScore < cfg.MinRelevanceThreshold {
		article.AutoIngested = true
		article.IngestStatus = core.IngestStatusFailed
		if err := p.db.Articles().Upsert(ctx, article); err != nil {
			return ArticleResult{URI: article.URI, Status: core.IngestStatusFailed, Error: err.Error()}
		}
		return ArticleResult{URI: article.URI, Status: core.IngestStatusFailed, Error: "below relevance threshold"}
	}

	if cfg.QualityControlEnabled {
		review := p.quality.Review(ctx, article.Title, article.NewsSource, content)
		article.QualityScore = review.QualityScore
		article.QualityIssues = review.IssuesDetected
		if review.Recommendation == core.RecommendationReject {
			article.AutoIngested = true
			article.IngestStatus = core.IngestStatusFailed
			if err := p.db.Articles().Upsert(ctx, article); err != nil {
				return ArticleResult{URI: article.URI, Status: core.IngestStatusFailed, Error: err.Error()}
			}
			return ArticleResult{URI: article.URI, Status: core.IngestStatusFailed, Error: "rejected by quality review: " + review.Explanation}
		}
		if cfg.AutoSaveApprovedOnly && review.Recommendation != core.RecommendationApprove {
			article.AutoIngested = true
			article.IngestStatus = core.IngestStatusFailed
			if err := p.db.Articles().Upsert(ctx, article); err != nil {
				return ArticleResult{URI: article.URI, Status: core.IngestStatusFailed, Error: err.Error()}
			}
			return ArticleResult{URI: article.URI, Status: core.IngestStatusFailed, Error: "held for manual review"}
		}
	}

	article.Analyzed = true
	article.AutoIngested = true
	article.IngestStatus = core.IngestStatusApproved

	if err := p.db.Articles().Upsert(ctx, article); err != nil {
		return ArticleResult{URI: article.URI, Status: core.IngestStatusFailed, Error: err.Error()}
	}

	if p.vectors != nil {
		if err := p.vectors.Upsert(ctx, article, content); err != nil {
			logger.Warn("ingest: vector index failed", "uri", article.URI, "error", err.Error())
		}
	}

	return ArticleResult{URI: article.URI, Status: core.IngestStatusApproved}
}

func applyAnalysis(a *core.Article, an core.Analysis) {
	a.Category = an.Category
	a.Sentiment = an.Sentiment
	a.SentimentExplanation = an.SentimentExplanation
	a.FutureSignal = an.FutureSignal
	a.FutureSignalExplanation = an.FutureSignalExplanation
	a.TimeToImpact = an.TimeToImpact
	a.TimeToImpactExplanation = an.TimeToImpactExplanation
	a.DriverType = an.DriverType
	a.DriverTypeExplanation = an.DriverTypeExplanation
	a.Tags = an.Tags
	if an.Summary != "" {
		a.Summary = an.Summary
	}
	if an.PublicationDate != "" {
		a.PublicationDate = an.PublicationDate
	}
}

func applyRelevance(a *core.Article, r core.RelevanceResult) {
	a.TopicAlignmentScore = r.TopicAlignmentScore
	a.KeywordRelevanceScore = r.KeywordRelevanceScore
	a.ConfidenceScore = r.ConfidenceScore
	a.OverallMatchExplanation = r.OverallMatchExplanation
	a.ExtractedArticleTopics = r.ExtractedArticleTopics
	a.ExtractedArticleKeywords = r.ExtractedArticleKeywords
}

// isForeignKeyViolation reports whether err is a Postgres foreign-key
// constraint violation, as opposed to a connection error or any other
// failure that a direct-scrape retry would not fix.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == foreignKeyViolation
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func chunk(articles []core.Article, size int) [][]core.Article {
	if len(articles) == 0 {
		return nil
	}
	var batches [][]core.Article
	for i := 0; i < len(articles); i += size {
		end := i + size
		if end > len(articles) {
			end = len(articles)
		}
		batches = append(batches, articles[i:end])
	}
	return batches
}

// atomicSummary accumulates per-article results across concurrently
// running batches under a single mutex, since Summary's counters must
// not race.
type atomicSummary struct {
	mu      sync.Mutex
	summary Summary
}

func (s *atomicSummary) add(r ArticleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary.Processed++
	s.summary.Details = append(s.summary.Details, r)
	switch {
	case r.Status == core.IngestStatusApproved:
		s.summary.Ingested++
	case strings.Contains(r.Error, "relevance threshold"):
		s.summary.RejectedRelevance++
	case strings.Contains(r.Error, "quality review") || strings.Contains(r.Error, "manual review"):
		s.summary.RejectedQuality++
	default:
		s.summary.Errors++
	}
}

func (s *atomicSummary) snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}
