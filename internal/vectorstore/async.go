package vectorstore

import (
	"context"

	"golang.org/x/sync/semaphore"

	"newsmonitor/internal/core"
)

// Async wraps a VectorStore so bulk callers (C8 batch ingest, C9 provider
// fan-in) can issue many upserts concurrently without unbounded goroutine
// growth. Each call still returns synchronously to its caller; the bound is
// purely on how many of the underlying store's operations run at once.
type Async struct {
	store VectorStore
	sem   *semaphore.Weighted
}

func NewAsync(store VectorStore, maxConcurrent int64) *Async {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Async{store: store, sem: semaphore.NewWeighted(maxConcurrent)}
}

func (a *Async) UpsertAll(ctx context.Context, articles []*core.Article, rawText func(*core.Article) string) []error {
	errs := make([]error, len(articles))
	done := make(chan struct{}, len(articles))

	for i, article := range articles {
		i, article := i, article
		if err := a.sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			done <- struct{}{}
			continue
		}
		go func() {
			defer a.sem.Release(1)
			defer func() { done <- struct{}{} }()
			text := ""
			if rawText != nil {
				text = rawText(article)
			}
			errs[i] = a.store.Upsert(ctx, article, text)
		}()
	}

	for range articles {
		<-done
	}
	return errs
}

func (a *Async) Upsert(ctx context.Context, article *core.Article, rawText string) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer a.sem.Release(1)
	return a.store.Upsert(ctx, article, rawText)
}

func (a *Async) Search(ctx context.Context, query string, q SearchQuery) ([]SearchResult, error) {
	return a.store.Search(ctx, query, q)
}

func (a *Async) Similar(ctx context.Context, uri string, topK int) ([]SearchResult, error) {
	return a.store.Similar(ctx, uri, topK)
}

func (a *Async) GetByMetadata(ctx context.Context, filter map[string]any, limit int) ([]SearchResult, error) {
	return a.store.GetByMetadata(ctx, filter, limit)
}

func (a *Async) Delete(ctx context.Context, uri string) error {
	return a.store.Delete(ctx, uri)
}

func (a *Async) Project(ctx context.Context, uris []string) (*ClusterProjection, error) {
	return a.store.Project(ctx, uris)
}

func (a *Async) Stats(ctx context.Context) (Stats, error) {
	return a.store.Stats(ctx)
}
