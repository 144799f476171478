// Package mediabias implements C5: a domain-keyed lookup of bias,
// factual-reporting, and credibility metadata that auto-enables a source
// on its first successful match.
package mediabias

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
	"newsmonitor/internal/persistence"
)

// Registry enriches articles with media-bias metadata.
type Registry struct {
	repo persistence.MediaBiasRepository
}

func New(repo persistence.MediaBiasRepository) *Registry {
	return &Registry{repo: repo}
}

// NormalizeDomain strips protocol, path, and a leading "www." prefix from
// a URL or bare domain, grounded in the original model's normalize_domain.
func NormalizeDomain(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if strings.Contains(raw, "/") && !strings.Contains(raw, " ") {
			raw = "https://" + raw
		} else {
			return strings.ToLower(raw)
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	domain := strings.ToLower(u.Host)
	domain = strings.TrimPrefix(domain, "www.")
	return domain
}

// DomainsMatch reports whether two domains refer to the same source,
// tolerating subdomains, root-domain comparison, and a missing TLD on
// either side (grounded in domains_match).
func DomainsMatch(source, target string) bool {
	if source == "" || target == "" {
		return false
	}
	source = strings.ToLower(source)
	target = strings.ToLower(target)

	if source == target {
		return true
	}
	if strings.HasSuffix(source, "."+target) || strings.HasSuffix(target, "."+source) {
		return true
	}

	sourceRoot := rootDomain(source)
	targetRoot := rootDomain(target)
	if sourceRoot == targetRoot {
		return true
	}

	sourceParts := strings.Split(source, ".")
	targetParts := strings.Split(target, ".")
	if len(sourceParts) == 1 && len(targetParts) >= 2 && source == targetParts[len(targetParts)-2] {
		return true
	}
	if len(targetParts) == 1 && len(sourceParts) >= 2 && target == sourceParts[len(sourceParts)-2] {
		return true
	}
	return false
}

func rootDomain(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return domain
}

// Lookup finds the best media-bias match for a raw source string,
// cascading exact match (auto-enabled if disabled) → domain-enabled →
// domain-disabled (auto-enable).
func (r *Registry) Lookup(ctx context.Context, source string) (*core.MediaBiasSource, error) {
	normalized := NormalizeDomain(source)
	if normalized == "" {
		return nil, nil
	}

	// Exact match is the common case and has a unique index; try it before
	// falling back to a full domain-matching scan.
	if exact, err := r.repo.GetBySource(ctx, normalized); err == nil {
		if exact.Enabled {
			return exact, nil
		}
		return r.autoEnable(ctx, exact)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, core.NewError("mediabias.Lookup", core.ErrKindInternal, err)
	}

	candidates, err := r.repo.Search(ctx, "", 10000)
	if err != nil {
		return nil, core.NewError("mediabias.Lookup", core.ErrKindInternal, err)
	}

	var domainEnabled, domainDisabled *core.MediaBiasSource
	for i := range candidates {
		c := &candidates[i]
		if !DomainsMatch(normalized, c.Source) {
			continue
		}
		if c.Enabled && domainEnabled == nil {
			domainEnabled = c
		}
		if !c.Enabled && domainDisabled == nil {
			domainDisabled = c
		}
	}

	if domainEnabled != nil {
		return domainEnabled, nil
	}
	if domainDisabled != nil {
		return r.autoEnable(ctx, domainDisabled)
	}
	return nil, nil
}

func (r *Registry) autoEnable(ctx context.Context, source *core.MediaBiasSource) (*core.MediaBiasSource, error) {
	if err := r.repo.Enable(ctx, source.ID); err != nil {
		logger.Warn("mediabias: failed to auto-enable source", "source", source.Source, "error", err.Error())
		return source, nil
	}
	logger.Info("mediabias: auto-enabled source on first match", "source", source.Source)
	source.Enabled = true
	return source, nil
}

// EnrichArticle keys the lookup by the article's news source, falling
// back to the article URI's host when NewsSource is absent (spec §4.8
// step a). Failure to find or enrich is never an error — it simply
// leaves the article's bias fields unset.
func (r *Registry) EnrichArticle(ctx context.Context, article *core.Article) error {
	key := article.NewsSource
	if key == "" {
		key = article.URI
	}

	match, err := r.Lookup(ctx, key)
	if err != nil {
		logger.Warn("mediabias: enrichment lookup failed", "uri", article.URI, "error", err.Error())
		return nil
	}
	if match == nil {
		return nil
	}

	article.Bias = match.Bias
	article.FactualReporting = match.FactualReporting
	article.MBFCCredibilityRating = match.MBFCCredibilityRating
	article.BiasSource = match.Source
	article.BiasCountry = match.Country
	article.PressFreedom = match.PressFreedom
	article.MediaType = match.MediaType
	article.Popularity = match.Popularity
	return nil
}
