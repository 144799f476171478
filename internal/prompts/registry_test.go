package prompts

import (
	"strings"
	"testing"

	"newsmonitor/internal/core"
)

func TestCurrentReturnsDefaultTemplates(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{
		core.TemplateTitleExtraction,
		core.TemplateContentAnalysis,
		core.TemplateRelevanceAnalysis,
		core.TemplateDateExtraction,
		core.TemplateQualityReview,
	} {
		tpl, err := r.Current(name)
		if err != nil {
			t.Fatalf("Current(%q) returned error: %v", name, err)
		}
		if tpl.Version != 1 {
			t.Errorf("expected version 1 for %q, got %d", name, tpl.Version)
		}
	}
}

func TestCurrentUnknownTemplate(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Current("does_not_exist"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestSaveBumpsVersion(t *testing.T) {
	r := NewRegistry()
	tpl := r.Save(core.TemplateTitleExtraction, "new system", "new user {article_text}")
	if tpl.Version != 2 {
		t.Errorf("expected version 2 after save, got %d", tpl.Version)
	}

	current, err := r.Current(core.TemplateTitleExtraction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current.SystemPrompt != "new system" {
		t.Errorf("expected saved prompt to be current, got %q", current.SystemPrompt)
	}
}

func TestBundleHashStableUntilChange(t *testing.T) {
	r := NewRegistry()
	h1 := r.BundleHash()
	h2 := r.BundleHash()
	if h1 != h2 {
		t.Errorf("expected stable hash across calls, got %q then %q", h1, h2)
	}
	if len(h1) != 16 {
		t.Errorf("expected 16-char hash, got %d chars: %q", len(h1), h1)
	}

	r.Save(core.TemplateTitleExtraction, "changed", "changed {article_text}")
	h3 := r.BundleHash()
	if h3 == h1 {
		t.Error("expected bundle hash to change after a template edit")
	}
}

func TestFormatTitlePromptTruncatesTo2000Chars(t *testing.T) {
	r := NewRegistry()
	longText := strings.Repeat("a", 5000)

	msgs, err := r.FormatTitlePrompt(longText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if !strings.Contains(msgs[1].Content, strings.Repeat("a", 2000)) {
		t.Error("expected truncated article text in user message")
	}
	if strings.Contains(msgs[1].Content, strings.Repeat("a", 2001)) {
		t.Error("expected article text truncated to 2000 chars")
	}
}

func TestFormatAnalysisPromptFillsAllSlots(t *testing.T) {
	r := NewRegistry()
	cfg := core.DefaultAnalysisConfig()

	msgs, err := r.FormatAnalysisPrompt(AnalysisPromptInput{
		ArticleText: "some article body",
		Title:       "A Title",
		Source:      "example.com",
		URI:         "https://example.com/a",
		Config:      cfg,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msgs[1].Content, "A Title") {
		t.Error("expected title slot filled in user message")
	}
	if !strings.Contains(msgs[1].Content, "Technology") {
		t.Error("expected categories slot filled in user message")
	}
}

func TestFormatRelevancePromptMissingSlotIsHardError(t *testing.T) {
	r := NewRegistry()
	r.Save(core.TemplateRelevanceAnalysis, "system needs {topic}", "user {topic} {missing_slot}")

	_, err := r.FormatRelevancePrompt(RelevancePromptInput{
		Topic:   "AI",
		Content: "body",
	})
	if err == nil {
		t.Fatal("expected error for missing slot")
	}
}

func TestLoadCustomTemplatesSkipsInvalidEntries(t *testing.T) {
	r := NewRegistry()
	raw := []byte(`{
		"title_extraction": {"system_prompt": "custom system", "user_prompt": "custom {article_text}"},
		"broken_entry": {"system_prompt": "only system, missing user"}
	}`)

	if err := r.LoadCustomTemplates(raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tpl, err := r.Current(core.TemplateTitleExtraction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.SystemPrompt != "custom system" {
		t.Errorf("expected custom override to apply, got %q", tpl.SystemPrompt)
	}

	if _, err := r.Current("broken_entry"); err == nil {
		t.Error("expected invalid entry to be skipped, not saved")
	}
}
