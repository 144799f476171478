package vectorstore

import (
	"context"
	"hash/fnv"
	"math/rand"

	"newsmonitor/internal/logger"
)

const fallbackDimensions = 1536

// FallbackEmbedder produces a deterministic pseudo-random vector when no
// real embedding credentials are configured (original_source/app/vector_store.py
// falls back to np.random.rand(1536) so the pipeline still runs in dev).
// Seeding on the text's hash, rather than calling rand with no seed, keeps
// repeated upserts of the same text idempotent instead of drifting on
// every call.
type FallbackEmbedder struct {
	dimensions int
}

func NewFallbackEmbedder() *FallbackEmbedder {
	return &FallbackEmbedder{dimensions: fallbackDimensions}
}

func (e *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	logger.Warn("vectorstore: no embedding credentials configured, using fallback random vector")
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float64, e.dimensions)
	for i := range vec {
		vec[i] = rng.Float64()
	}
	return vec, nil
}

func (e *FallbackEmbedder) Dimensions() int { return e.dimensions }
