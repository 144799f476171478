// Package relevance implements C7: scoring an article against a topic and
// keyword set, never failing the caller even when the model's response
// doesn't parse.
package relevance

import (
	"context"
	"fmt"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/prompts"
)

// Generator is the subset of llm.Client relevance scoring needs.
type Generator interface {
	Generate(ctx context.Context, messages []core.PromptMessage) (string, error)
}

type Calculator struct {
	llm     Generator
	prompts *prompts.Registry
}

func New(llm Generator, promptRegistry *prompts.Registry) *Calculator {
	return &Calculator{llm: llm, prompts: promptRegistry}
}

// Analyze scores a single article against topic and keywords. It never
// returns an error to the caller: any failure yields an all-zero
// RelevanceResult carrying an explanation, per spec §4.5.
func (c *Calculator) Analyze(ctx context.Context, title, source, content, topic string, keywords []string) core.RelevanceResult {
	messages, err := c.prompts.FormatRelevancePrompt(prompts.RelevancePromptInput{
		Topic:    orDefault(topic, "No topic specified"),
		Keywords: keywords,
		Title:    orDefault(title, "No title available"),
		Source:   orDefault(source, "Unknown source"),
		Content:  orDefault(content, "No content available"),
	})
	if err != nil {
		logger.Warn("relevance: failed to format prompt", "error", err.Error())
		return core.ZeroRelevanceResult(fmt.Sprintf("failed to format relevance prompt: %s", err.Error()))
	}

	raw, err := c.llm.Generate(ctx, messages)
	if err != nil {
		logger.Warn("relevance: model call failed", "error", err.Error())
		return core.ZeroRelevanceResult(fmt.Sprintf("relevance analysis failed: %s", err.Error()))
	}

	result, err := parseRelevanceResponse(raw)
	if err != nil {
		logger.Warn("relevance: failed to parse model response", "error", err.Error(), "raw", raw)
		return core.ZeroRelevanceResult(fmt.Sprintf("failed to parse analysis response: %s", err.Error()))
	}
	return result
}

// BatchItem pairs an Article with the raw content its relevance is scored
// against, since the scrape/raw text lives outside the Article record.
type BatchItem struct {
	Article core.Article
	Content string
}

// AnalyzeBatch scores every article independently; a per-article failure
// never aborts the remainder of the batch.
func (c *Calculator) AnalyzeBatch(ctx context.Context, items []BatchItem, topic string, keywords []string) []core.RelevanceResult {
	results := make([]core.RelevanceResult, len(items))
	for i, item := range items {
		results[i] = c.Analyze(ctx, item.Article.Title, item.Article.NewsSource, item.Content, topic, keywords)
	}
	return results
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
