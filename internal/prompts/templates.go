package prompts

import (
	"fmt"
	"regexp"
	"strings"

	"newsmonitor/internal/core"
)

// slotPattern matches `{slot_name}` placeholders, the Go analogue of
// Python's str.format(**kwargs) slot syntax used by the original templates.
var slotPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// fillSlots substitutes every {slot} in tpl with slots[slot]; an
// unresolvable slot is a hard error (spec §4.2: "a missing slot is a hard
// error").
func fillSlots(tpl string, slots map[string]string) (string, error) {
	var missing []string
	result := slotPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		name := match[1 : len(match)-1]
		val, ok := slots[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return val
	})
	if len(missing) > 0 {
		return "", core.NewError("prompts.fillSlots", core.ErrKindValidation,
			fmt.Errorf("missing required slot(s): %s", strings.Join(missing, ", ")))
	}
	return result, nil
}

func defaultTemplates() map[string]core.PromptTemplate {
	return map[string]core.PromptTemplate{
		core.TemplateTitleExtraction: {
			Name:    core.TemplateTitleExtraction,
			Version: 1,
			SystemPrompt: "You are an expert editor skilled at creating and extracting " +
				"perfect titles for news articles.",
			UserPrompt: `Extract or generate an appropriate title for the following article. Follow these guidelines:

1. If there's a clear, existing title in the text, extract and use it.
2. If there's no clear title, create a concise and informative title based on the main topic of the article.
3. The title should be attention-grabbing but not clickbait.
4. Keep the title under 15 words.
5. Capitalize the first letter of each major word.
6. Do not use quotation marks unless part of a central quote.

Article text:
{article_text}

Respond with only the title, nothing else.`,
		},
		core.TemplateContentAnalysis: {
			Name:    core.TemplateContentAnalysis,
			Version: 1,
			SystemPrompt: "You are an expert assistant that analyzes and summarizes articles. " +
				"Provide summaries in the style of {summary_voice} and format of {summary_type}.",
			UserPrompt: `Summarize the following news article in {summary_length} words, using the voice of a {summary_voice}.

Title: {title}
Source: {source}
URL: {uri}
Content: {article_text}

1. Category: classify into one of: {categories}. If none fit, suggest "Other".
2. Future Signal: classify into one of: {future_signals}. Explain your classification.
3. Sentiment: classify into one of: {sentiment_options}. Explain your classification.
4. Time to Impact: classify into one of: {time_to_impact_options}. Explain your classification.
5. Driver Type: classify into one of: {driver_types}. Explain your classification.
6. Tags: generate 3-5 relevant tags.

Format your response exactly as:
Title: [title]
Summary: [summary]
Category: [category]
Future Signal: [signal]
Future Signal Explanation: [explanation]
Sentiment: [sentiment]
Sentiment Explanation: [explanation]
Time to Impact: [time to impact]
Time to Impact Explanation: [explanation]
Driver Type: [driver type]
Driver Type Explanation: [explanation]
Tags: [tag1, tag2, tag3]`,
		},
		core.TemplateRelevanceAnalysis: {
			Name:    core.TemplateRelevanceAnalysis,
			Version: 1,
			SystemPrompt: "You are an expert analyst scoring how well an article matches a " +
				"monitored topic and keyword set. Respond with a single JSON object and nothing else.",
			UserPrompt: `Topic: {topic}
Keywords: {keywords}

Title: {title}
Source: {source}
Content: {content}

Score this article's relevance on three axes, each in [0,1]:
- topic_alignment_score: how well it matches the topic
- keyword_relevance_score: how well it matches the keyword set
- confidence_score: your confidence in this scoring

Respond with exactly this JSON shape:
{"topic_alignment_score": 0.0, "keyword_relevance_score": 0.0, "confidence_score": 0.0, "overall_match_explanation": "...", "extracted_article_topics": [], "extracted_article_keywords": []}`,
		},
		core.TemplateDateExtraction: {
			Name:    core.TemplateDateExtraction,
			Version: 1,
			SystemPrompt: "You are a precise date extractor. Respond with only a date in " +
				"YYYY-MM-DD format, nothing else.",
			UserPrompt: `Extract the publication date of the following article. If no date is
present, respond with "unknown".

Content:
{content}`,
		},
		core.TemplateQualityReview: {
			Name:    core.TemplateQualityReview,
			Version: 1,
			SystemPrompt: "You are a content-quality reviewer checking whether scraped text is a " +
				"real article body rather than a cookie notice, paywall, error page, or navigation " +
				"chrome. Respond with a single JSON object and nothing else.",
			UserPrompt: `Title: {title}
Source: {source}
Content: {content}

Respond with exactly this JSON shape:
{"quality_score": 0.0, "issues_detected": [], "recommendation": "approve|review|reject", "explanation": "...", "content_type": "article|cookie_notice|paywall|error_page|navigation|other"}`,
		},
	}
}

// FormatTitlePrompt implements format_title_prompt: only the first 2000
// chars of article text are needed for title extraction.
func (r *Registry) FormatTitlePrompt(articleText string) ([]core.PromptMessage, error) {
	tpl, err := r.Current(core.TemplateTitleExtraction)
	if err != nil {
		return nil, err
	}
	text := articleText
	if len(text) > 2000 {
		text = text[:2000]
	}
	return formatMessages(tpl, map[string]string{"article_text": text})
}

// AnalysisPromptInput bundles the per-call slots for format_analysis_prompt.
type AnalysisPromptInput struct {
	ArticleText string
	Title       string
	Source      string
	URI         string
	Config      core.AnalysisConfig
}

func (r *Registry) FormatAnalysisPrompt(in AnalysisPromptInput) ([]core.PromptMessage, error) {
	tpl, err := r.Current(core.TemplateContentAnalysis)
	if err != nil {
		return nil, err
	}
	cfg := in.Config
	slots := map[string]string{
		"article_text":           in.ArticleText,
		"title":                  in.Title,
		"source":                 in.Source,
		"uri":                    in.URI,
		"summary_length":         fmt.Sprintf("%d", cfg.SummaryLength),
		"summary_voice":          cfg.SummaryVoice,
		"summary_type":           cfg.SummaryType,
		"categories":             strings.Join(cfg.Categories, ", "),
		"future_signals":         strings.Join(cfg.FutureSignals, ", "),
		"sentiment_options":      strings.Join(cfg.SentimentOptions, ", "),
		"time_to_impact_options": strings.Join(cfg.TimeToImpactOptions, ", "),
		"driver_types":           strings.Join(cfg.DriverTypes, ", "),
	}
	return formatMessages(tpl, slots)
}

// RelevancePromptInput bundles the per-call slots for the relevance template.
type RelevancePromptInput struct {
	Topic    string
	Keywords []string
	Title    string
	Source   string
	Content  string
}

func (r *Registry) FormatRelevancePrompt(in RelevancePromptInput) ([]core.PromptMessage, error) {
	tpl, err := r.Current(core.TemplateRelevanceAnalysis)
	if err != nil {
		return nil, err
	}
	slots := map[string]string{
		"topic":    in.Topic,
		"keywords": strings.Join(in.Keywords, ", "),
		"title":    in.Title,
		"source":   in.Source,
		"content":  in.Content,
	}
	return formatMessages(tpl, slots)
}

func (r *Registry) FormatDateExtractionPrompt(content string) ([]core.PromptMessage, error) {
	tpl, err := r.Current(core.TemplateDateExtraction)
	if err != nil {
		return nil, err
	}
	return formatMessages(tpl, map[string]string{"content": content})
}

// QualityReviewPromptInput bundles the per-call slots for the
// content-quality review template (spec §4.8.1).
type QualityReviewPromptInput struct {
	Title   string
	Source  string
	Content string
}

func (r *Registry) FormatQualityReviewPrompt(in QualityReviewPromptInput) ([]core.PromptMessage, error) {
	tpl, err := r.Current(core.TemplateQualityReview)
	if err != nil {
		return nil, err
	}
	slots := map[string]string{
		"title":   in.Title,
		"source":  in.Source,
		"content": in.Content,
	}
	return formatMessages(tpl, slots)
}
