// Package vectorstore implements C2: embedding generation, upsert, cosine
// k-NN search, metadata-filtered retrieval, and the project() clustering
// view consumed by visualisation collaborators.
package vectorstore

import (
	"context"

	"newsmonitor/internal/core"
)

// Embedder produces a single embedding vector for a piece of text. The LLM
// package implements this; FallbackEmbedder (embedding.go) is a
// deterministic random-vector implementation. The CLI wiring in
// cmd/newsmonitor always uses the LLM embedder and never selects
// FallbackEmbedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}

// SearchResult is one (id, score, metadata) triple; score is cosine
// distance (smaller is closer), matching pgvector's `<=>` operator.
type SearchResult struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// SearchQuery configures search/similar/get_by_metadata calls.
type SearchQuery struct {
	TopK   int
	Filter map[string]any
}

func DefaultSearchQuery() SearchQuery {
	return SearchQuery{TopK: 10}
}

// Stats mirrors the teacher's VectorStoreStats shape.
type Stats struct {
	TotalVectors int
	Dimensions   int
}

// ClusterProjection is the result of project(): per-point 2-D coordinates,
// the centroid of each cluster, and per-cluster sizes.
type ClusterProjection struct {
	PointCoordinates [][2]float64
	PointClusters    []int
	Centroids        [][]float64
	ClusterSizes     []int
}

// VectorStore is the C2 contract. Every operation offers only a
// synchronous surface here; Async wraps it onto a bounded worker pool
// (see async.go) per spec §4.1's concurrency requirement.
type VectorStore interface {
	Upsert(ctx context.Context, article *core.Article, rawText string) error
	Search(ctx context.Context, query string, q SearchQuery) ([]SearchResult, error)
	Similar(ctx context.Context, uri string, topK int) ([]SearchResult, error)
	GetByMetadata(ctx context.Context, filter map[string]any, limit int) ([]SearchResult, error)
	Delete(ctx context.Context, uri string) error
	Project(ctx context.Context, uris []string) (*ClusterProjection, error)
	Stats(ctx context.Context) (Stats, error)
}

// bestText implements the raw > summary > title preference order from
// spec §4.1; returns "" if none are present, which callers treat as
// core.ErrNoContent.
func bestText(article *core.Article, rawText string) string {
	if rawText != "" {
		return rawText
	}
	if article.Summary != "" {
		return article.Summary
	}
	return article.Title
}
