package scrape

import (
	"context"
	"time"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

// BatchStatus mirrors the three states a batch scraping backend reports.
type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

// BatchItemResult is one URL's outcome within a completed batch.
type BatchItemResult struct {
	URL     string
	Content string
	Success bool
	Error   string
}

// BatchBackend is the subset of a batch-scraping provider's API the
// collector needs: submit a set of URLs, then poll a batch ID for
// completion. No such provider is wired into this module (the example
// pack carries no client library for one), so the only implementation
// is unconfiguredBackend, which reports itself unavailable and sends
// every URL through the direct per-URL Fetcher instead.
type BatchBackend interface {
	Configured() bool
	Submit(ctx context.Context, urls []string) (batchID string, err error)
	Poll(ctx context.Context, batchID string) (status BatchStatus, results []BatchItemResult, err error)
}

type unconfiguredBackend struct{}

func (unconfiguredBackend) Configured() bool { return false }
func (unconfiguredBackend) Submit(context.Context, []string) (string, error) {
	return "", core.NewError("scrape.Submit", core.ErrKindInternal, errNotConfigured)
}
func (unconfiguredBackend) Poll(context.Context, string) (BatchStatus, []BatchItemResult, error) {
	return BatchStatusFailed, nil, core.NewError("scrape.Poll", core.ErrKindInternal, errNotConfigured)
}

var errNotConfigured = errNotConfiguredErr{}

type errNotConfiguredErr struct{}

func (errNotConfiguredErr) Error() string { return "no batch scraping backend configured" }

// Polling backoff constants, per §4.6: start at 5s, grow by 1.2x each
// round up to a 30s cap, give up after 300s total.
const (
	pollIntervalStart = 5 * time.Second
	pollIntervalMax   = 30 * time.Second
	pollGrowthFactor  = 1.2
	pollDeadline      = 300 * time.Second
)

// Batcher submits and polls a BatchBackend, falling back to direct
// per-URL fetches whenever the backend is unconfigured, the batch fails,
// or polling times out.
type Batcher struct {
	backend BatchBackend
	direct  *Fetcher
}

func NewBatcher(backend BatchBackend, direct *Fetcher) *Batcher {
	if backend == nil {
		backend = unconfiguredBackend{}
	}
	return &Batcher{backend: backend, direct: direct}
}

// FetchAll resolves content for every URL in urls. Bluesky URLs are always
// fetched directly and never included in the batch submission. Regular
// URLs go through the batch backend when configured; on failure, timeout,
// or an unconfigured backend, each falls back to a direct fetch.
func (b *Batcher) FetchAll(ctx context.Context, urls []string) map[string]Result {
	results := make(map[string]Result, len(urls))

	var batchable []string
	for _, u := range urls {
		if IsBlueskyURL(u) {
			results[u] = b.direct.Fetch(ctx, u)
			continue
		}
		batchable = append(batchable, u)
	}

	if len(batchable) == 0 {
		return results
	}

	if !b.backend.Configured() {
		b.fetchDirectAll(ctx, batchable, results)
		return results
	}

	batchID, err := b.backend.Submit(ctx, batchable)
	if err != nil {
		logger.Warn("scrape: batch submit failed, falling back to direct fetch", "error", err.Error())
		b.fetchDirectAll(ctx, batchable, results)
		return results
	}
	logger.Info("scrape: batch submitted", "batch_id", batchID, "count", len(batchable))

	items, ok := b.poll(ctx, batchID)
	if !ok {
		b.fetchDirectAll(ctx, batchable, results)
		return results
	}

	fetched := make(map[string]bool, len(items))
	for _, item := range items {
		fetched[item.URL] = true
		if !item.Success {
			logger.Warn("scrape: batch item failed", "url", item.URL, "error", item.Error)
			results[item.URL] = failure(item.URL, ExtractSource(item.URL), item.Error)
			continue
		}
		content := core.TruncateWords(item.Content, core.MaxRawContentChars)
		results[item.URL] = Result{
			Content:         content,
			Source:          ExtractSource(item.URL),
			PublicationDate: time.Now().UTC().Format("2006-01-02"),
			Success:         true,
		}
	}

	// A batch may silently omit a submitted URL; fetch those directly.
	for _, u := range batchable {
		if !fetched[u] {
			results[u] = b.direct.Fetch(ctx, u)
		}
	}

	return results
}

// poll waits for batchID to reach a terminal state, backing off
// geometrically between checks. ok is false on failure or timeout,
// signalling the caller to fall back to direct fetches.
func (b *Batcher) poll(ctx context.Context, batchID string) (items []BatchItemResult, ok bool) {
	deadline := time.Now().Add(pollDeadline)
	interval := pollIntervalStart

	for time.Now().Before(deadline) {
		status, results, err := b.backend.Poll(ctx, batchID)
		if err != nil {
			logger.Warn("scrape: batch poll error", "batch_id", batchID, "error", err.Error())
			if !sleep(ctx, interval) {
				return nil, false
			}
			interval = growInterval(interval)
			continue
		}

		switch status {
		case BatchStatusCompleted:
			logger.Info("scrape: batch completed", "batch_id", batchID, "count", len(results))
			return results, true
		case BatchStatusFailed:
			logger.Warn("scrape: batch failed", "batch_id", batchID)
			return nil, false
		}

		if !sleep(ctx, interval) {
			return nil, false
		}
		interval = growInterval(interval)
	}

	logger.Warn("scrape: batch timed out", "batch_id", batchID, "deadline", pollDeadline)
	return nil, false
}

func growInterval(interval time.Duration) time.Duration {
	grown := time.Duration(float64(interval) * pollGrowthFactor)
	if grown > pollIntervalMax {
		return pollIntervalMax
	}
	return grown
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (b *Batcher) fetchDirectAll(ctx context.Context, urls []string, results map[string]Result) {
	for _, u := range urls {
		results[u] = b.direct.Fetch(ctx, u)
	}
}

// DirectScrape bypasses persistence entirely — the failsafe used when a
// foreign-key conflict is detected while saving scraped content under a
// topic. It performs a plain direct fetch and returns the result without
// involving the batch backend.
func (b *Batcher) DirectScrape(ctx context.Context, rawURL string) Result {
	return b.direct.Fetch(ctx, rawURL)
}
