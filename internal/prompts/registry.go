// Package prompts implements C3: named, versioned prompt templates with a
// content-hash bundle fingerprint consumed by the analysis cache (C4) to
// invalidate entries on template change.
package prompts

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"newsmonitor/internal/core"
	"newsmonitor/internal/logger"
)

// Registry holds the current version of every named template, guarded by
// a mutex since save() may race with concurrent format_* calls.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]core.PromptTemplate
}

func NewRegistry() *Registry {
	r := &Registry{templates: map[string]core.PromptTemplate{}}
	for name, tpl := range defaultTemplates() {
		r.templates[name] = tpl
	}
	return r
}

// Current returns the current version of a named template.
func (r *Registry) Current(name string) (core.PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[name]
	if !ok {
		return core.PromptTemplate{}, core.NewError("prompts.Current", core.ErrKindNotFound, fmt.Errorf("unknown template %q", name))
	}
	return tpl, nil
}

// Save writes a new version of a named template, bumping its version
// counter so bundle_hash() changes on every edit.
func (r *Registry) Save(name, system, user string) core.PromptTemplate {
	r.mu.Lock()
	defer r.mu.Unlock()
	version := 1
	if existing, ok := r.templates[name]; ok {
		version = existing.Version + 1
	}
	tpl := core.PromptTemplate{Name: name, Version: version, SystemPrompt: system, UserPrompt: user}
	r.templates[name] = tpl
	return tpl
}

// BundleHash fingerprints every current template as SHA-256 over canonical
// JSON, truncated to 16 hex chars (spec §3.1). Changing any template, or
// adding a new one, changes this value.
func (r *Registry) BundleHash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]core.PromptTemplate, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, r.templates[name])
	}

	canonical, err := json.Marshal(ordered)
	if err != nil {
		// Templates are plain strings/ints; marshal failure is unreachable
		// in practice, but keep a stable fallback rather than panicking.
		logger.Error("prompts: failed to marshal bundle for hashing", err)
		return ""
	}
	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("%x", sum)[:16]
}

// LoadCustomTemplates merges a JSON file of {name: {system_prompt, user_prompt}}
// overrides on top of the defaults; entries missing either prompt are
// skipped with a warning rather than failing the whole load (spec §4.2).
func (r *Registry) LoadCustomTemplates(raw []byte) error {
	var custom map[string]struct {
		SystemPrompt string `json:"system_prompt"`
		UserPrompt   string `json:"user_prompt"`
	}
	if err := json.Unmarshal(raw, &custom); err != nil {
		return core.NewError("prompts.LoadCustomTemplates", core.ErrKindParse, err)
	}

	for name, entry := range custom {
		if entry.SystemPrompt == "" || entry.UserPrompt == "" {
			logger.Warn("prompts: skipping invalid custom template", "name", name)
			continue
		}
		r.Save(name, entry.SystemPrompt, entry.UserPrompt)
	}
	return nil
}

// formatMessages fills an ordered two-message list; a missing slot value
// is a hard error rather than silently rendering an empty placeholder.
func formatMessages(tpl core.PromptTemplate, slots map[string]string) ([]core.PromptMessage, error) {
	system, err := fillSlots(tpl.SystemPrompt, slots)
	if err != nil {
		return nil, err
	}
	user, err := fillSlots(tpl.UserPrompt, slots)
	if err != nil {
		return nil, err
	}
	return []core.PromptMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, nil
}
