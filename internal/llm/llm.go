// Package llm wraps the Gemini client used by analyzer (C6) and relevance
// (C7) to turn a two-message prompt into free-form text.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"newsmonitor/internal/config"
	"newsmonitor/internal/core"
)

const (
	// DefaultModel is used when GeminiConfig.Model is unset.
	DefaultModel = "gemini-flash-lite-latest"
	// DefaultEmbeddingModel is used when GeminiConfig.EmbeddingModel is unset.
	DefaultEmbeddingModel = "gemini-embedding-001"
	// DefaultEmbeddingDimensions is used when no dimensions value is
	// passed to NewClient, matching the pgvector column width declared
	// in migrations/0002_vectors.sql.
	DefaultEmbeddingDimensions = int32(1536)
)

// Client talks to Gemini for both text generation and embeddings.
type Client struct {
	modelName      string
	embeddingModel string
	embeddingDims  int32
	temperature    float32
	maxTokens      int32
	gClient        *genai.Client
}

// NewClient builds a Client from the AI section of the config.
// dimensions sets the Matryoshka output width GenerateEmbedding requests;
// callers should pass the vector store's configured column width
// (Config.Vector.Dimensions) so the two never drift apart. A
// dimensions <= 0 falls back to DefaultEmbeddingDimensions. NewClient
// returns an error if no Gemini API key is configured.
func NewClient(ctx context.Context, cfg config.GeminiConfig, dimensions int) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: gemini api key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	embeddingDims := int32(dimensions)
	if embeddingDims <= 0 {
		embeddingDims = DefaultEmbeddingDimensions
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}

	return &Client{
		modelName:      modelName,
		embeddingModel: embeddingModel,
		embeddingDims:  embeddingDims,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		gClient:        gClient,
	}, nil
}

// Close is a no-op placeholder; the SDK client holds no resources that
// need explicit release.
func (c *Client) Close() {}

// ModelName returns the model this client generates text with.
func (c *Client) ModelName() string {
	return c.modelName
}

// Generate sends a system+user message pair (as produced by the prompts
// package) and returns the model's raw text response.
func (c *Client) Generate(ctx context.Context, messages []core.PromptMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("llm: no messages to send")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemInstruction *genai.Content
	for _, m := range messages {
		switch m.Role {
		case "system":
			systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
	}
	if c.maxTokens > 0 {
		genConfig.MaxOutputTokens = c.maxTokens
	}
	if c.temperature > 0 {
		temp := c.temperature
		genConfig.Temperature = &temp
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("llm: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("llm: empty response from model")
	}
	return text, nil
}

// GenerateEmbedding returns a float64 vector for text, using Matryoshka
// truncation to keep the output width aligned with the vector store's
// column dimensions.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: text}},
	}}

	dims := c.embeddingDims
	embedConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	}

	resp, err := c.gClient.Models.EmbedContent(ctx, c.embeddingModel, contents, embedConfig)
	if err != nil {
		return nil, fmt.Errorf("llm: generate embedding: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("llm: no embedding values returned")
	}

	values := resp.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}

// Dimensions reports the embedding width this client produces.
func (c *Client) Dimensions() int {
	return int(c.embeddingDims)
}
