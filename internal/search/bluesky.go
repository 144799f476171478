package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"newsmonitor/internal/logger"
)

const defaultBlueskyEndpoint = "https://bsky.social/xrpc"

// BlueskyProvider searches posts via the AT Protocol's public
// app.bsky.feed.searchPosts endpoint. It authenticates with the app
// password flow (createSession) rather than OAuth, matching the
// handle+app-key pair carried in config.BlueskyConfig.
type BlueskyProvider struct {
	handle   string
	appKey   string
	endpoint string
	client   *http.Client

	accessJWT string
}

func NewBlueskyProvider(handle, appKey, endpoint string) *BlueskyProvider {
	if endpoint == "" {
		endpoint = defaultBlueskyEndpoint
	}
	return &BlueskyProvider{
		handle:   handle,
		appKey:   appKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *BlueskyProvider) Name() string { return "Bluesky" }

func (p *BlueskyProvider) Search(ctx context.Context, query string, cfg Config) ([]Result, error) {
	if err := p.ensureSession(ctx); err != nil {
		return nil, fmt.Errorf("bluesky: failed to authenticate: %w", err)
	}

	params := url.Values{}
	params.Set("q", query)
	if cfg.MaxResults > 0 {
		params.Set("limit", strconv.Itoa(cfg.MaxResults))
	}
	if !cfg.Since.IsZero() {
		params.Set("since", cfg.Since.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.endpoint+"/app.bsky.feed.searchPosts?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("bluesky: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.accessJWT)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bluesky: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bluesky: search failed with status %d", resp.StatusCode)
	}

	var apiResponse struct {
		Posts []struct {
			URI    string `json:"uri"`
			Author struct {
				Handle string `json:"handle"`
			} `json:"author"`
			Record struct {
				Text      string `json:"text"`
				CreatedAt string `json:"createdAt"`
			} `json:"record"`
		} `json:"posts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("bluesky: failed to parse response: %w", err)
	}

	results := make([]Result, 0, len(apiResponse.Posts))
	for _, post := range apiResponse.Posts {
		results = append(results, Result{
			URL:           postWebURL(post.Author.Handle, post.URI),
			Title:         post.Record.Text,
			Source:        "bsky.app",
			PublishedDate: publishedDateOnly(post.Record.CreatedAt),
			Summary:       post.Record.Text,
		})
	}

	logger.Info("bluesky: search completed", "query", query, "results", len(results))
	return results, nil
}

// postWebURL builds the bsky.app permalink for a post from its author
// handle and at:// record URI (at://did/app.bsky.feed.post/<rkey>).
func postWebURL(handle, atURI string) string {
	idx := lastSlash(atURI)
	if idx == -1 {
		return "https://bsky.app/profile/" + handle
	}
	return "https://bsky.app/profile/" + handle + "/post/" + atURI[idx+1:]
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

// ensureSession authenticates with the app-password flow once; session
// JWTs in practice expire but a fresh Search beyond this module's scope
// would refresh on 401 rather than eagerly renewing.
func (p *BlueskyProvider) ensureSession(ctx context.Context) error {
	if p.accessJWT != "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"identifier": p.handle,
		"password":   p.appKey,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+"/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("createSession failed with status %d", resp.StatusCode)
	}

	var session struct {
		AccessJwt string `json:"accessJwt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return err
	}
	p.accessJWT = session.AccessJwt
	return nil
}
