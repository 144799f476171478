package search

import (
	"context"
	"fmt"
)

// MockProvider returns a fixed, query-annotated result set. It exists for
// tests and for local development without any provider credentials.
type MockProvider struct {
	results []Result
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		results: []Result{
			{URL: "https://example.com/article1", Title: "Example Article 1", Source: "example.com", Summary: "Mock result 1."},
			{URL: "https://test.org/article2", Title: "Test Article 2", Source: "test.org", Summary: "Mock result 2."},
			{URL: "https://demo.net/article3", Title: "Demo Article 3", Source: "demo.net", Summary: "Mock result 3."},
		},
	}
}

func (m *MockProvider) Name() string { return "Mock" }

func (m *MockProvider) Search(_ context.Context, query string, cfg Config) ([]Result, error) {
	max := cfg.MaxResults
	if max <= 0 || max > len(m.results) {
		max = len(m.results)
	}
	results := make([]Result, max)
	for i := 0; i < max; i++ {
		r := m.results[i]
		r.Title = fmt.Sprintf("%s (query: %s)", r.Title, query)
		results[i] = r
	}
	return results, nil
}

// SetResults overrides the fixed result set, for tests that need
// specific URLs/titles.
func (m *MockProvider) SetResults(results []Result) {
	m.results = results
}
