package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"newsmonitor/internal/logger"
)

// DuckDuckGoProvider scrapes DuckDuckGo's HTML results page. It requires
// no API key, making it the always-available fallback collector.
type DuckDuckGoProvider struct {
	client    *http.Client
	userAgent string
}

func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	}
}

func (d *DuckDuckGoProvider) Name() string { return "DuckDuckGo" }

func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, cfg Config) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.buildSearchURL(query, cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: search request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: failed to read response body: %w", err)
	}
	bodyStr := string(body)

	if strings.Contains(bodyStr, "captcha") || strings.Contains(bodyStr, "Captcha") {
		return nil, fmt.Errorf("duckduckgo: search blocked by CAPTCHA, try again later")
	}

	results := d.parseSearchResults(bodyStr, cfg.MaxResults)
	logger.Info("duckduckgo: search completed", "query", query, "results", len(results))
	return results, nil
}

func (d *DuckDuckGoProvider) buildSearchURL(query string, cfg Config) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("b", "0")
	params.Set("kl", "us-en")
	if !cfg.Since.IsZero() {
		switch days := int(time.Since(cfg.Since).Hours() / 24); {
		case days <= 1:
			params.Set("df", "d")
		case days <= 7:
			params.Set("df", "w")
		case days <= 30:
			params.Set("df", "m")
		case days <= 365:
			params.Set("df", "y")
		}
	}
	return "https://html.duckduckgo.com/html/?" + params.Encode()
}

var (
	ddgResultPattern  = regexp.MustCompile(`<div class="result[^"]*"[^>]*>(.*?)</div>`)
	ddgTitlePattern   = regexp.MustCompile(`<a[^>]*class="result__a"[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`<a[^>]*class="result__snippet"[^>]*>(.*?)</a>`)
	ddgTagPattern     = regexp.MustCompile(`<[^>]*>`)
	ddgSpacePattern   = regexp.MustCompile(`\s+`)
)

func (d *DuckDuckGoProvider) parseSearchResults(html string, maxResults int) []Result {
	var results []Result
	for i, match := range ddgResultPattern.FindAllStringSubmatch(html, -1) {
		if maxResults > 0 && i >= maxResults {
			break
		}

		titleMatch := ddgTitlePattern.FindStringSubmatch(match[1])
		if len(titleMatch) < 3 {
			continue
		}

		finalURL := d.extractFinalURL(titleMatch[1])
		if finalURL == "" {
			continue
		}

		summary := ""
		if snippetMatch := ddgSnippetPattern.FindStringSubmatch(match[1]); len(snippetMatch) >= 2 {
			summary = d.cleanHTMLText(snippetMatch[1])
		}

		results = append(results, Result{
			URL:     finalURL,
			Title:   d.cleanHTMLText(titleMatch[2]),
			Source:  ExtractDomain(finalURL),
			Summary: summary,
		})
	}
	return results
}

// extractFinalURL unwraps DuckDuckGo's "/l/?uddg=<encoded>" redirect.
func (d *DuckDuckGoProvider) extractFinalURL(redirectURL string) string {
	if strings.HasPrefix(redirectURL, "/l/?") {
		parsed, err := url.Parse(redirectURL)
		if err != nil {
			return ""
		}
		if uddg := parsed.Query().Get("uddg"); uddg != "" {
			decoded, err := url.QueryUnescape(uddg)
			if err != nil {
				return ""
			}
			return decoded
		}
		return ""
	}
	if strings.HasPrefix(redirectURL, "http") {
		return redirectURL
	}
	return ""
}

func (d *DuckDuckGoProvider) cleanHTMLText(text string) string {
	text = ddgTagPattern.ReplaceAllString(text, "")
	text = strings.NewReplacer(
		"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", "\"", "&#39;", "'", "&nbsp;", " ",
	).Replace(text)
	return strings.TrimSpace(ddgSpacePattern.ReplaceAllString(text, " "))
}

// ExtractDomain returns rawURL's host with a leading "www." stripped.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
