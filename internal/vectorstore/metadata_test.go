package vectorstore

import (
	"testing"
	"time"

	"newsmonitor/internal/core"
)

func TestParsePublicationDateTS(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool // true if a real (non-"now") timestamp should be parsed
	}{
		{"RFC3339", "2024-03-15T10:30:00Z", true},
		{"date only", "2024-03-15", true},
		{"slash date", "03/15/2024", true},
		{"empty falls back to now", "", false},
		{"garbage falls back to now", "not a date", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now().UTC().Unix()
			ts := parsePublicationDateTS(tt.raw)
			after := time.Now().UTC().Unix()
			if ts <= 0 {
				t.Errorf("expected positive timestamp, got %d", ts)
			}
			if isNow := ts >= before && ts <= after; isNow == tt.want {
				t.Errorf("parsePublicationDateTS(%q) = %d; fell back to now = %v, want parsed = %v", tt.raw, ts, isNow, tt.want)
			}
		})
	}
}

func TestBuildMetadataDropsEmptyFields(t *testing.T) {
	article := &core.Article{
		URI:             "https://example.com/a",
		Title:           "A title",
		PublicationDate: "2024-03-15",
		Topic:           "ai-policy",
	}

	md := buildMetadata(article)

	if md["uri"] != article.URI {
		t.Errorf("expected uri %q, got %v", article.URI, md["uri"])
	}
	if _, ok := md["category"]; ok {
		t.Error("expected empty category to be omitted from metadata")
	}
	if _, ok := md["tags"]; ok {
		t.Error("expected empty tags to be omitted from metadata")
	}
}

func TestBuildMetadataIncludesTags(t *testing.T) {
	article := &core.Article{
		URI:  "https://example.com/b",
		Tags: []string{"policy", "regulation"},
	}

	md := buildMetadata(article)

	if md["tags"] != "policy,regulation" {
		t.Errorf("expected joined tags, got %v", md["tags"])
	}
}

func TestBestTextPriority(t *testing.T) {
	article := &core.Article{Title: "title only"}
	if got := bestText(article, ""); got != "title only" {
		t.Errorf("expected title fallback, got %q", got)
	}

	article.Summary = "a summary"
	if got := bestText(article, ""); got != "a summary" {
		t.Errorf("expected summary over title, got %q", got)
	}

	if got := bestText(article, "raw scraped text"); got != "raw scraped text" {
		t.Errorf("expected raw text over summary, got %q", got)
	}
}
