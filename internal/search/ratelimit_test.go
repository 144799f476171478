package search

import (
	"context"
	"errors"
	"testing"

	"newsmonitor/internal/core"
)

type fakeLimiter struct {
	count int
	err   error
}

func (f *fakeLimiter) IncrementRequestsToday(context.Context) (int, error) {
	f.count++
	return f.count, f.err
}

func TestRateLimitedProviderAllowsUnderLimit(t *testing.T) {
	limiter := &fakeLimiter{}
	p := WithRateLimit(NewMockProvider(), limiter, 10)

	if _, err := p.Search(context.Background(), "ai", Config{MaxResults: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRateLimitedProviderBlocksOverLimit(t *testing.T) {
	limiter := &fakeLimiter{count: 5}
	p := WithRateLimit(NewMockProvider(), limiter, 5)

	_, err := p.Search(context.Background(), "ai", Config{MaxResults: 1})
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimitedProviderZeroLimitMeansUnlimited(t *testing.T) {
	limiter := &fakeLimiter{count: 10000}
	p := WithRateLimit(NewMockProvider(), limiter, 0)

	if _, err := p.Search(context.Background(), "ai", Config{MaxResults: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRateLimitedProviderPropagatesLimiterError(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("db unavailable")}
	p := WithRateLimit(NewMockProvider(), limiter, 10)

	if _, err := p.Search(context.Background(), "ai", Config{MaxResults: 1}); err == nil {
		t.Fatal("expected an error when the limiter itself fails")
	}
}
