package llm

import "context"

// Embedder adapts Client to the vectorstore.Embedder interface so the
// pgvector store can embed article text without importing the llm package's
// full generation surface.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return e.client.GenerateEmbedding(ctx, text)
}

func (e *Embedder) Dimensions() int {
	return e.client.Dimensions()
}
