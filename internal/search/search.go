// Package search implements C9: provider collectors behind a single
// contract, `search(query, topic, max_results, since) -> []Result`, plus
// the rate limiting and circuit breaking every provider shares.
package search

import (
	"context"
	"time"
)

// Provider is the unified interface every search collector implements.
type Provider interface {
	Search(ctx context.Context, query string, cfg Config) ([]Result, error)
	Name() string
}

// Config carries the per-call parameters of the provider contract.
type Config struct {
	Topic      string
	MaxResults int
	Since      time.Time // zero value means "no lower bound"
	Language   string
}

// Result is a ProviderArticle per §4.7: the minimal fields a new article
// can be inserted from, before analyzer/relevance enrich it further.
type Result struct {
	URL           string
	Title         string
	Source        string
	PublishedDate string
	Summary       string
}

// ProviderType selects which collector a ProviderFactory builds.
type ProviderType string

const (
	ProviderTypeNewsAPI    ProviderType = "newsapi"
	ProviderTypeBluesky    ProviderType = "bluesky"
	ProviderTypeDuckDuckGo ProviderType = "duckduckgo"
	ProviderTypeMock       ProviderType = "mock"
)

// ProviderFactory builds a Provider from loaded configuration, wrapping
// it in a circuit breaker and, when Limiter is non-nil, the shared
// daily rate limiter.
type ProviderFactory struct {
	NewsAPIKey    string
	NewsAPIURL    string
	BlueskyHandle string
	BlueskyAppKey string
	BlueskyURL    string

	Limiter    RequestLimiter // optional; nil disables rate limiting
	DailyLimit int
}

func (f *ProviderFactory) CreateProvider(providerType ProviderType) (Provider, error) {
	var p Provider
	switch providerType {
	case ProviderTypeNewsAPI:
		if f.NewsAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		p = NewNewsAPIProvider(f.NewsAPIKey, f.NewsAPIURL)
	case ProviderTypeBluesky:
		p = NewBlueskyProvider(f.BlueskyHandle, f.BlueskyAppKey, f.BlueskyURL)
	case ProviderTypeDuckDuckGo:
		p = NewDuckDuckGoProvider()
	case ProviderTypeMock:
		p = NewMockProvider()
	default:
		return nil, ErrUnsupportedProvider
	}

	p = WithBreaker(p)
	if f.Limiter != nil {
		p = WithRateLimit(p, f.Limiter, f.DailyLimit)
	}
	return p, nil
}

func (f *ProviderFactory) AvailableProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeNewsAPI,
		ProviderTypeBluesky,
		ProviderTypeDuckDuckGo,
		ProviderTypeMock,
	}
}
