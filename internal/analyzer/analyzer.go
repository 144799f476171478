// Package analyzer implements C6: turning raw article text into a
// structured Analysis via line-oriented LLM prompting, with a C4-backed
// cache keyed by (uri, model_name, content_hash, template_hash).
package analyzer

import (
	"context"
	"fmt"
	"time"

	"newsmonitor/internal/analysiscache"
	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/prompts"
)

// Generator is the subset of the llm.Client surface the analyzer needs,
// kept as an interface so tests can substitute a fake model.
type Generator interface {
	Generate(ctx context.Context, messages []core.PromptMessage) (string, error)
	ModelName() string
}

type Analyzer struct {
	llm     Generator
	prompts *prompts.Registry
	cache   *analysiscache.Cache
}

func New(llm Generator, promptRegistry *prompts.Registry, cache *analysiscache.Cache) *Analyzer {
	return &Analyzer{llm: llm, prompts: promptRegistry, cache: cache}
}

// ExtractTitle extracts or generates a title from article text.
func (a *Analyzer) ExtractTitle(ctx context.Context, articleText string) (string, error) {
	if articleText == "" {
		return "", core.NewError("analyzer.ExtractTitle", core.ErrKindValidation, fmt.Errorf("article text cannot be empty"))
	}
	messages, err := a.prompts.FormatTitlePrompt(articleText)
	if err != nil {
		return "", core.NewError("analyzer.ExtractTitle", core.ErrKindValidation, err)
	}
	title, err := a.llm.Generate(ctx, messages)
	if err != nil {
		return "", core.NewError("analyzer.ExtractTitle", core.ErrKindProviderErr, err)
	}
	return trimTitle(title), nil
}

// ExtractPublicationDate extracts a YYYY-MM-DD date from article text,
// falling back to today's UTC date when the model's response doesn't parse.
func (a *Analyzer) ExtractPublicationDate(ctx context.Context, content string) string {
	messages, err := a.prompts.FormatDateExtractionPrompt(content)
	if err != nil {
		logger.Warn("analyzer: failed to format date extraction prompt", "error", err.Error())
		return todayUTC()
	}

	raw, err := a.llm.Generate(ctx, messages)
	if err != nil {
		logger.Warn("analyzer: date extraction call failed, using today's date", "error", err.Error())
		return todayUTC()
	}

	if parsed, ok := parseISODate(raw); ok {
		return parsed
	}
	logger.Warn("analyzer: model date did not parse as YYYY-MM-DD, using today's date", "raw", raw)
	return todayUTC()
}

func todayUTC() string {
	return time.Now().UTC().Format("2006-01-02")
}

// Analyze produces a structured Analysis for article text, consulting the
// C4 cache before calling the LLM and writing the result back on a miss.
func (a *Analyzer) Analyze(ctx context.Context, text, title, source, uri string, cfg core.AnalysisConfig) (core.Analysis, error) {
	if text == "" {
		return core.Analysis{}, core.NewError("analyzer.Analyze", core.ErrKindValidation, fmt.Errorf("article text cannot be empty"))
	}
	if uri == "" {
		return core.Analysis{}, core.NewError("analyzer.Analyze", core.ErrKindValidation, fmt.Errorf("uri cannot be empty"))
	}

	text = core.TruncateWords(text, core.MaxRawContentChars)
	contentHash := analysiscache.ContentHash(text)
	templateHash := a.prompts.BundleHash()
	modelName := a.llm.ModelName()

	if cached, ok := a.cache.Get(uri, contentHash, templateHash); ok {
		if analysis, err := decodeAnalysis(cached); err == nil && analysis.ModelName == modelName {
			logger.Debug("analyzer: cache hit", "uri", uri, "model", modelName)
			analysis.URI = uri
			return analysis, nil
		}
	}

	messages, err := a.prompts.FormatAnalysisPrompt(prompts.AnalysisPromptInput{
		ArticleText: text,
		Title:       title,
		Source:      source,
		URI:         uri,
		Config:      cfg,
	})
	if err != nil {
		return core.Analysis{}, core.NewError("analyzer.Analyze", core.ErrKindValidation, err)
	}

	raw, err := a.llm.Generate(ctx, messages)
	if err != nil {
		return core.Analysis{}, core.NewError("analyzer.Analyze", core.ErrKindProviderErr, err)
	}

	// A Title line missing from the model's analysis response falls back
	// to a fresh extract_title call rather than failing the whole analysis.
	fallbackTitle := func() string {
		extracted, extractErr := a.ExtractTitle(ctx, text)
		if extractErr != nil {
			logger.Warn("analyzer: title fallback extraction failed", "uri", uri, "error", extractErr.Error())
			return ""
		}
		return extracted
	}

	analysis, err := parseAnalysis(raw, fallbackTitle)
	if err != nil {
		return core.Analysis{}, err
	}
	analysis.URI = uri
	analysis.ModelName = modelName
	analysis.PublicationDate = a.ExtractPublicationDate(ctx, text)

	if encoded, encErr := encodeAnalysis(analysis); encErr == nil {
		if setErr := a.cache.Set(uri, contentHash, encoded, templateHash); setErr != nil {
			logger.Warn("analyzer: failed to cache analysis", "uri", uri, "error", setErr.Error())
		}
	}

	return analysis, nil
}
