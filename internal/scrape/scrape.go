// Package scrape implements C8: fetching article content from a URL and
// reducing it to the plain text the analyzer (C6) and relevance
// calculator (C7) operate on.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

// Result is the shape fetch(url) returns, per §4.6: content plus whatever
// metadata was cheaply recoverable from the page itself. PublicationDate
// and Title are best-effort; callers needing a reliable date should run
// the result through analyzer.ExtractPublicationDate instead.
type Result struct {
	Content         string
	Source          string
	PublicationDate string
	Title           string
	Success         bool
}

var boilerplateSelector = "script, style, nav, footer, header, aside, form, iframe, noscript, " +
	".sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner"

var mainContentSelectors = []string{
	"article", "main", ".main-content", ".entry-content", ".post-content",
	".post-body", ".article-body", "[role='main']", ".content", "#content",
}

var blankLineRegex = regexp.MustCompile(`\n{2,}`)

// Fetcher performs direct HTTP(S) fetches of individual URLs. It is the
// fallback path used when no batch backend is configured, and the only
// path for Bluesky URLs.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{client: client}
}

// IsBlueskyURL reports whether uri's host is bsky.app or a *.bsky.social
// subdomain. Bluesky posts render as near-empty HTML shells, so they are
// never run through the generic boilerplate-stripping extraction below.
func IsBlueskyURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host == "bsky.app" || strings.HasSuffix(host, ".bsky.social")
}

// ExtractSource returns uri's host with a leading "www." stripped, the
// display name used for an article's source field.
func ExtractSource(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}

// Fetch retrieves rawURL and returns its extracted text content. It never
// returns an error for a reachable-but-unparseable page: Success is false
// and Content carries a human-readable explanation instead, so callers can
// persist a placeholder rather than abort the whole pipeline.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	source := ExtractSource(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failure(rawURL, source, fmt.Sprintf("invalid URL: %s", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newsmonitor/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return failure(rawURL, source, fmt.Sprintf("fetch failed: %s", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failure(rawURL, source, fmt.Sprintf("fetch failed: status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(rawURL, source, fmt.Sprintf("failed to read response body: %s", err))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return failure(rawURL, source, fmt.Sprintf("failed to parse HTML: %s", err))
	}

	content := extractContent(doc)
	if content == "" {
		logger.Warn("scrape: no text extracted after cleaning", "url", rawURL)
		return failure(rawURL, source, "no content extracted from page")
	}

	content = core.TruncateWords(content, core.MaxRawContentChars)

	return Result{
		Content:         content,
		Source:          source,
		PublicationDate: time.Now().UTC().Format("2006-01-02"),
		Title:           extractTitle(doc),
		Success:         true,
	}
}

func failure(rawURL, source, reason string) Result {
	logger.Warn("scrape: fetch failed", "url", rawURL, "reason", reason)
	return Result{
		Content:         fmt.Sprintf("Failed to fetch article content: %s", reason),
		Source:          source,
		PublicationDate: time.Now().UTC().Format("2006-01-02"),
		Success:         false,
	}
}

// extractTitle walks head title, then og:title, then the first h1.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractContent removes boilerplate elements, then walks a cascade of
// main-content selectors before falling back to the whole body.
func extractContent(doc *goquery.Document) string {
	doc.Find(boilerplateSelector).Remove()

	var b strings.Builder
	for _, selector := range mainContentSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			writeBlocks(&b, sel)
		})
		if b.Len() > 0 {
			return cleanText(b.String())
		}
	}

	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		writeBlocks(&b, sel)
	})
	return cleanText(b.String())
}

func writeBlocks(b *strings.Builder, sel *goquery.Selection) {
	sel.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
		text := strings.TrimSpace(item.Text())
		if text == "" {
			return
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	})
}

func cleanText(text string) string {
	return strings.TrimSpace(blankLineRegex.ReplaceAllString(text, "\n\n"))
}
