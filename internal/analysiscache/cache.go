// Package analysiscache implements C4: a content-addressed, TTL-bound
// cache of LLM analysis results, file-backed with a two-char hash-prefix
// subdirectory layout.
package analysiscache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newsmonitor/internal/logger"
)

const defaultTTL = 24 * time.Hour

// entry is the on-disk record written to each cache file.
type entry struct {
	URI          string         `json:"uri"`
	ContentHash  string         `json:"content_hash"`
	TemplateHash string         `json:"template_hash"`
	Analysis     map[string]any `json:"analysis"`
	CachedAt     time.Time      `json:"cached_at"`
}

// Cache is the filesystem-backed implementation of C4.
type Cache struct {
	dir string
	ttl time.Duration
}

func New(dir string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("analysiscache: create cache dir: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// ContentHash is SHA-256(content) truncated to 16 hex chars (spec §4.3).
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", sum)[:16]
}

func safeURI(uri string) string {
	safe := strings.ReplaceAll(uri, "://", "_")
	return strings.ReplaceAll(safe, "/", "_")
}

func (c *Cache) path(uri, contentHash string) string {
	subdir := contentHash
	if len(subdir) > 2 {
		subdir = subdir[:2]
	}
	filename := fmt.Sprintf("%s_%s.json", safeURI(uri), contentHash)
	return filepath.Join(c.dir, subdir, filename)
}

// Get returns the cached analysis iff both content_hash and template_hash
// match the current inputs and the entry has not exceeded its TTL.
// A template-hash mismatch or expiry deletes the stale entry. The content
// hash is part of the file name, so an entry written under a different
// content hash is a separate file that Get neither reads nor deletes.
// Corrupt entries are treated as misses (spec §4.3).
func (c *Cache) Get(uri, contentHash, templateHash string) (map[string]any, bool) {
	path := c.path(uri, contentHash)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		logger.Warn("analysiscache: corrupt entry treated as miss", "uri", uri, "error", err.Error())
		return nil, false
	}

	if time.Since(e.CachedAt) > c.ttl {
		logger.Debug("analysiscache: entry expired", "uri", uri)
		_ = os.Remove(path)
		return nil, false
	}

	if e.TemplateHash != templateHash {
		logger.Debug("analysiscache: template hash mismatch", "uri", uri)
		_ = os.Remove(path)
		return nil, false
	}

	return e.Analysis, true
}

// Set overwrites any existing entry for (uri, content_hash).
func (c *Cache) Set(uri, contentHash string, analysis map[string]any, templateHash string) error {
	path := c.path(uri, contentHash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("analysiscache: create subdir: %w", err)
	}

	e := entry{
		URI:          uri,
		ContentHash:  contentHash,
		TemplateHash: templateHash,
		Analysis:     analysis,
		CachedAt:     time.Now().UTC(),
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("analysiscache: marshal entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("analysiscache: write entry: %w", err)
	}
	return nil
}

func (c *Cache) Delete(uri, contentHash string) error {
	path := c.path(uri, contentHash)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("analysiscache: delete entry: %w", err)
	}
	return nil
}

// Clear removes every cached entry across every hash-prefix subdirectory.
func (c *Cache) Clear() error {
	return c.eachEntry(func(path string, _ entry) error {
		return os.Remove(path)
	})
}

// Stats reports file count, total size, and the oldest/newest cached_at.
type Stats struct {
	TotalFiles     int
	TotalSizeBytes int64
	OldestCache    *time.Time
	NewestCache    *time.Time
}

func (c *Cache) GetStats() (Stats, error) {
	var stats Stats
	err := c.eachEntry(func(path string, e entry) error {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return statErr
		}
		stats.TotalFiles++
		stats.TotalSizeBytes += info.Size()
		if stats.OldestCache == nil || e.CachedAt.Before(*stats.OldestCache) {
			t := e.CachedAt
			stats.OldestCache = &t
		}
		if stats.NewestCache == nil || e.CachedAt.After(*stats.NewestCache) {
			t := e.CachedAt
			stats.NewestCache = &t
		}
		return nil
	})
	return stats, err
}

// CleanupExpired removes every entry older than the configured TTL and
// returns the number removed.
func (c *Cache) CleanupExpired() (int, error) {
	cleaned := 0
	err := c.eachEntry(func(path string, e entry) error {
		if time.Since(e.CachedAt) > c.ttl {
			if rmErr := os.Remove(path); rmErr != nil {
				return rmErr
			}
			cleaned++
		}
		return nil
	})
	return cleaned, err
}

// eachEntry walks every *.json file under every hash-prefix subdirectory,
// decoding each as an entry before handing it to fn. Unreadable/corrupt
// files are skipped rather than aborting the whole walk.
func (c *Cache) eachEntry(fn func(path string, e entry) error) error {
	return filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			logger.Warn("analysiscache: skipping unreadable entry", "path", path, "error", readErr.Error())
			return nil
		}
		var e entry
		if jsonErr := json.Unmarshal(data, &e); jsonErr != nil {
			logger.Warn("analysiscache: skipping corrupt entry", "path", path, "error", jsonErr.Error())
			return nil
		}
		return fn(path, e)
	})
}
