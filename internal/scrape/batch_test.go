package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeBackend struct {
	configured bool
	submitErr  error
	statuses   []BatchStatus
	results    []BatchItemResult
	pollErrs   []error
	pollCalls  int
}

func (f *fakeBackend) Configured() bool { return f.configured }

func (f *fakeBackend) Submit(context.Context, []string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "batch-1", nil
}

func (f *fakeBackend) Poll(context.Context, string) (BatchStatus, []BatchItemResult, error) {
	idx := f.pollCalls
	f.pollCalls++
	if idx < len(f.pollErrs) && f.pollErrs[idx] != nil {
		return BatchStatusProcessing, nil, f.pollErrs[idx]
	}
	status := f.statuses[idx]
	if status == BatchStatusCompleted {
		return status, f.results, nil
	}
	return status, nil, nil
}

func testServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchAllUnconfiguredBackendGoesDirect(t *testing.T) {
	server := testServer(t, `<html><body><article><p>direct content</p></article></body></html>`)

	batcher := NewBatcher(nil, NewFetcher(server.Client()))
	results := batcher.FetchAll(context.Background(), []string{server.URL})

	r, ok := results[server.URL]
	if !ok || !r.Success {
		t.Fatalf("expected direct fetch success, got %+v", results)
	}
}

func TestFetchAllBlueskyURLNeverBatched(t *testing.T) {
	backend := &fakeBackend{configured: true}
	batcher := NewBatcher(backend, NewFetcher(http.DefaultClient))

	results := batcher.FetchAll(context.Background(), []string{"https://bsky.app/profile/alice/post/1"})

	if backend.pollCalls != 0 {
		t.Errorf("expected bluesky URL to bypass the batch backend entirely")
	}
	if _, ok := results["https://bsky.app/profile/alice/post/1"]; !ok {
		t.Errorf("expected a result for the bluesky URL")
	}
}

func TestFetchAllCompletedBatchUsesResults(t *testing.T) {
	backend := &fakeBackend{
		configured: true,
		statuses:   []BatchStatus{BatchStatusCompleted},
		results: []BatchItemResult{
			{URL: "https://example.com/a", Content: "batched content", Success: true},
		},
	}
	batcher := NewBatcher(backend, NewFetcher(http.DefaultClient))

	results := batcher.FetchAll(context.Background(), []string{"https://example.com/a"})

	r := results["https://example.com/a"]
	if !r.Success || r.Content != "batched content" {
		t.Errorf("expected batched content, got %+v", r)
	}
}

func TestFetchAllFailedBatchFallsBackToDirect(t *testing.T) {
	server := testServer(t, `<html><body><article><p>fallback content</p></article></body></html>`)
	backend := &fakeBackend{
		configured: true,
		statuses:   []BatchStatus{BatchStatusFailed},
	}
	batcher := NewBatcher(backend, NewFetcher(server.Client()))

	results := batcher.FetchAll(context.Background(), []string{server.URL})

	r := results[server.URL]
	if !r.Success {
		t.Fatalf("expected direct fallback success, got %+v", r)
	}
}

func TestFetchAllSubmitErrorFallsBackToDirect(t *testing.T) {
	server := testServer(t, `<html><body><article><p>fallback content</p></article></body></html>`)
	backend := &fakeBackend{configured: true, submitErr: errNotConfigured}
	batcher := NewBatcher(backend, NewFetcher(server.Client()))

	results := batcher.FetchAll(context.Background(), []string{server.URL})

	if !results[server.URL].Success {
		t.Fatalf("expected direct fallback on submit error")
	}
}

func TestGrowIntervalCapsAtMax(t *testing.T) {
	interval := pollIntervalStart
	for i := 0; i < 50; i++ {
		interval = growInterval(interval)
	}
	if interval != pollIntervalMax {
		t.Errorf("expected interval to cap at %v, got %v", pollIntervalMax, interval)
	}
}

func TestDirectScrapeBypassesBatcher(t *testing.T) {
	server := testServer(t, `<html><body><article><p>direct only</p></article></body></html>`)
	backend := &fakeBackend{configured: true}
	batcher := NewBatcher(backend, NewFetcher(server.Client()))

	result := batcher.DirectScrape(context.Background(), server.URL)

	if !result.Success {
		t.Fatalf("expected direct scrape success, got %+v", result)
	}
	if backend.pollCalls != 0 {
		t.Errorf("expected DirectScrape to never touch the batch backend")
	}
}
