package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"newsmonitor/internal/logger"
)

const defaultNewsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPIProvider implements Provider over the NewsAPI.org "everything"
// endpoint, the monitor's default provider (core.DefaultKeywordMonitorSettings).
type NewsAPIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewNewsAPIProvider(apiKey, baseURL string) *NewsAPIProvider {
	if baseURL == "" {
		baseURL = defaultNewsAPIBaseURL
	}
	return &NewsAPIProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *NewsAPIProvider) Name() string { return "NewsAPI" }

func (p *NewsAPIProvider) Search(ctx context.Context, query string, cfg Config) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	if cfg.MaxResults > 0 {
		params.Set("pageSize", strconv.Itoa(cfg.MaxResults))
	}
	if cfg.Language != "" {
		params.Set("language", cfg.Language)
	}
	if !cfg.Since.IsZero() {
		params.Set("from", cfg.Since.UTC().Format("2006-01-02T15:04:05"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create NewsAPI request: %w", err)
	}
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute NewsAPI request: %w", err)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Articles []struct {
			URL         string `json:"url"`
			Title       string `json:"title"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse NewsAPI response: %w", err)
	}
	if apiResponse.Status != "ok" {
		return nil, fmt.Errorf("NewsAPI error: %s", apiResponse.Message)
	}

	results := make([]Result, 0, len(apiResponse.Articles))
	for _, a := range apiResponse.Articles {
		results = append(results, Result{
			URL:           a.URL,
			Title:         a.Title,
			Source:        a.Source.Name,
			PublishedDate: publishedDateOnly(a.PublishedAt),
			Summary:       a.Description,
		})
	}

	logger.Info("newsapi: search completed", "query", query, "results", len(results))
	return results, nil
}

// publishedDateOnly reduces NewsAPI's RFC3339 publishedAt to YYYY-MM-DD,
// falling back to the raw value when it doesn't parse as expected.
func publishedDateOnly(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return t.UTC().Format("2006-01-02")
}
