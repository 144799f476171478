package search

import (
	"context"

	"newsmonitor/internal/core"
)

// RequestLimiter enforces the shared daily-request counter every
// provider draws from (KeywordMonitorStatus.RequestsToday, reset at UTC
// midnight). It is satisfied by persistence.SettingsRepository.
type RequestLimiter interface {
	IncrementRequestsToday(ctx context.Context) (int, error)
}

// rateLimitedProvider wraps a Provider so every Search call first checks
// the shared daily counter, failing with ErrKindRateLimited before any
// external call is made when the limit is already exceeded.
type rateLimitedProvider struct {
	inner      Provider
	limiter    RequestLimiter
	dailyLimit int
}

// WithRateLimit wraps inner so it refuses to run once the shared daily
// counter exceeds dailyLimit. A dailyLimit of 0 or less disables the
// check (treated as unlimited).
func WithRateLimit(inner Provider, limiter RequestLimiter, dailyLimit int) Provider {
	return &rateLimitedProvider{inner: inner, limiter: limiter, dailyLimit: dailyLimit}
}

func (p *rateLimitedProvider) Name() string { return p.inner.Name() }

func (p *rateLimitedProvider) Search(ctx context.Context, query string, cfg Config) ([]Result, error) {
	count, err := p.limiter.IncrementRequestsToday(ctx)
	if err != nil {
		return nil, core.NewError("search.Search", core.ErrKindInternal, err)
	}
	if p.dailyLimit > 0 && count > p.dailyLimit {
		return nil, core.NewError("search.Search", core.ErrKindRateLimited, ErrProviderUnavailable)
	}
	return p.inner.Search(ctx, query, cfg)
}
