package search

import (
	"context"
	"errors"
	"testing"
)

type failingProvider struct {
	name string
	err  error
}

func (f *failingProvider) Name() string { return f.name }
func (f *failingProvider) Search(context.Context, string, Config) ([]Result, error) {
	return nil, f.err
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	inner := &failingProvider{name: "flaky", err: errors.New("boom")}
	p := WithBreaker(inner)

	for i := 0; i < 3; i++ {
		if _, err := p.Search(context.Background(), "q", Config{}); err == nil {
			t.Fatalf("expected failure on call %d", i)
		}
	}

	_, err := p.Search(context.Background(), "q", Config{})
	if err == nil {
		t.Fatal("expected the breaker to be open after 3 consecutive failures")
	}
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	p := WithBreaker(NewMockProvider())

	results, err := p.Search(context.Background(), "q", Config{MaxResults: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestBreakerReportsInnerProviderName(t *testing.T) {
	p := WithBreaker(&failingProvider{name: "flaky"})
	if p.Name() != "flaky" {
		t.Errorf("expected name passthrough, got %q", p.Name())
	}
}
