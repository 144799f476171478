package analysiscache

import (
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(t.TempDir(), ttl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestSetThenGetRoundTrips(t *testing.T) {
	c := newTestCache(t, time.Hour)
	analysis := map[string]any{"title": "hello"}

	if err := c.Set("https://ex.com/a", "hash1", analysis, "tpl1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := c.Get("https://ex.com/a", "hash1", "tpl1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got["title"] != "hello" {
		t.Errorf("expected title %q, got %v", "hello", got["title"])
	}
}

func TestDeleteThenGetIsMiss(t *testing.T) {
	c := newTestCache(t, time.Hour)
	c.Set("https://ex.com/a", "hash1", map[string]any{"x": 1}, "tpl1")

	if err := c.Delete("https://ex.com/a", "hash1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Get("https://ex.com/a", "hash1", "tpl1"); ok {
		t.Error("expected miss after delete")
	}
}

func TestGetMissingEntryIsMiss(t *testing.T) {
	c := newTestCache(t, time.Hour)
	if _, ok := c.Get("https://ex.com/missing", "nohash", "tpl1"); ok {
		t.Error("expected miss for absent entry")
	}
}

func TestTemplateHashMismatchIsMiss(t *testing.T) {
	c := newTestCache(t, time.Hour)
	c.Set("https://ex.com/a", "hash1", map[string]any{"x": 1}, "tpl1")

	if _, ok := c.Get("https://ex.com/a", "hash1", "tpl2"); ok {
		t.Error("expected miss on template hash mismatch")
	}
	// Mismatch deletes the stale entry, so even the original template
	// hash now misses.
	if _, ok := c.Get("https://ex.com/a", "hash1", "tpl1"); ok {
		t.Error("expected stale entry to be deleted on mismatch")
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c := newTestCache(t, time.Millisecond)
	c.Set("https://ex.com/a", "hash1", map[string]any{"x": 1}, "tpl1")
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("https://ex.com/a", "hash1", "tpl1"); ok {
		t.Error("expected expired entry to be a miss")
	}
}

func TestClearRemovesAllEntries(t *testing.T) {
	c := newTestCache(t, time.Hour)
	c.Set("https://ex.com/a", "hash1", map[string]any{"x": 1}, "tpl1")
	c.Set("https://ex.com/b", "hash2", map[string]any{"x": 2}, "tpl1")

	if err := c.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalFiles != 0 {
		t.Errorf("expected 0 files after clear, got %d", stats.TotalFiles)
	}
}

func TestCleanupExpiredCountsRemoved(t *testing.T) {
	c := newTestCache(t, time.Millisecond)
	c.Set("https://ex.com/a", "hash1", map[string]any{"x": 1}, "tpl1")
	c.Set("https://ex.com/b", "hash2", map[string]any{"x": 2}, "tpl1")
	time.Sleep(5 * time.Millisecond)

	n, err := c.CleanupExpired()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cleaned entries, got %d", n)
	}
}

func TestGetStatsCountsFiles(t *testing.T) {
	c := newTestCache(t, time.Hour)
	c.Set("https://ex.com/a", "aaaa", map[string]any{"x": 1}, "tpl1")
	c.Set("https://ex.com/b", "bbbb", map[string]any{"x": 2}, "tpl1")

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalFiles != 2 {
		t.Errorf("expected 2 files, got %d", stats.TotalFiles)
	}
	if stats.OldestCache == nil || stats.NewestCache == nil {
		t.Error("expected oldest/newest to be set")
	}
}

func TestContentHashLength(t *testing.T) {
	h := ContentHash("some article content")
	if len(h) != 16 {
		t.Errorf("expected 16-char hash, got %d: %q", len(h), h)
	}
}
