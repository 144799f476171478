package search

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

// breakerProvider wraps a Provider in its own gobreaker.CircuitBreaker so
// a provider that starts failing repeatedly stops being hit at all for a
// cooldown period, rather than every monitor tick paying its timeout.
type breakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps inner with a circuit breaker that trips after 3
// consecutive failures and tries a single trial request after 30s open.
func WithBreaker(inner Provider) Provider {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("search: circuit breaker state change", "provider", name, "from", from.String(), "to", to.String())
		},
	}
	return &breakerProvider{inner: inner, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (p *breakerProvider) Name() string { return p.inner.Name() }

func (p *breakerProvider) Search(ctx context.Context, query string, cfg Config) ([]Result, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.inner.Search(ctx, query, cfg)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, core.NewError("search.Search", core.ErrKindProviderErr, ErrProviderUnavailable)
		}
		return nil, err
	}
	return result.([]Result), nil
}
