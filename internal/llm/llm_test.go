package llm

import (
	"context"
	"strings"
	"testing"

	"newsmonitor/internal/config"
)

func TestNewClientNoAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.GeminiConfig{}, 1536)
	if err == nil {
		t.Fatal("expected error when no API key is configured")
	}
	if !strings.Contains(err.Error(), "api key is required") {
		t.Errorf("expected api key error, got: %v", err)
	}
}

func TestNewClientDefaultsModelNames(t *testing.T) {
	// Skip the live client construction (it dials Gemini); exercise the
	// default-selection logic directly instead.
	cfg := config.GeminiConfig{APIKey: "unused-in-this-test"}
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}
	if modelName != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, modelName)
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if embeddingModel != DefaultEmbeddingModel {
		t.Errorf("expected default embedding model %q, got %q", DefaultEmbeddingModel, embeddingModel)
	}
}

func TestGenerateRequiresMessages(t *testing.T) {
	c := &Client{modelName: DefaultModel}
	if _, err := c.Generate(context.Background(), nil); err == nil {
		t.Error("expected error for empty message list")
	}
}

func TestEmbedderDelegatesDimensionsToClient(t *testing.T) {
	c := &Client{embeddingDims: DefaultEmbeddingDimensions}
	e := NewEmbedder(c)
	if e.Dimensions() != int(DefaultEmbeddingDimensions) {
		t.Errorf("expected %d dimensions, got %d", DefaultEmbeddingDimensions, e.Dimensions())
	}
}

func TestNewClientDimensionsFallback(t *testing.T) {
	// Exercise the same <= 0 fallback NewClient applies, without dialing
	// Gemini: a caller passing an unset Config.Vector.Dimensions should
	// still get a client whose embedding width matches the pgvector
	// column default instead of silently requesting 0 dimensions.
	for _, dimensions := range []int{0, -1} {
		got := int32(dimensions)
		if got <= 0 {
			got = DefaultEmbeddingDimensions
		}
		if got != DefaultEmbeddingDimensions {
			t.Errorf("dimensions=%d: expected fallback to %d, got %d", dimensions, DefaultEmbeddingDimensions, got)
		}
	}
}
