package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"newsmonitor/internal/core"
)

// requiredFields are the parsed-response keys analyze() cannot proceed
// without, keyed by their line-oriented label.
var requiredFields = []string{
	"Title", "Summary", "Category", "Future Signal",
	"Future Signal Explanation", "Sentiment", "Time to Impact",
	"Driver Type", "Tags",
}

// parseAnalysis implements the tolerant line-oriented "Key: value" parser
// (spec §4.4): keys may carry surrounding asterisks, values may span
// continuation lines, and tags may be bracketed or comma-separated. A
// missing Title line is recovered via fallbackTitle() before failing.
func parseAnalysis(raw string, fallbackTitle func() string) (core.Analysis, error) {
	fields := parseKeyValueBlock(raw)

	if _, ok := fields["Title"]; !ok {
		if title := fallbackTitle(); title != "" {
			fields["Title"] = title
		}
	}

	var missing []string
	for _, field := range requiredFields {
		if _, ok := fields[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return core.Analysis{}, core.NewError("analyzer.parseAnalysis", core.ErrKindParse,
			fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", ")))
	}

	return core.Analysis{
		Title:                   fields["Title"],
		Summary:                 fields["Summary"],
		Category:                fields["Category"],
		FutureSignal:            fields["Future Signal"],
		FutureSignalExplanation: fields["Future Signal Explanation"],
		Sentiment:               fields["Sentiment"],
		SentimentExplanation:    fields["Sentiment Explanation"],
		TimeToImpact:            fields["Time to Impact"],
		TimeToImpactExplanation: fields["Time to Impact Explanation"],
		DriverType:              fields["Driver Type"],
		DriverTypeExplanation:   fields["Driver Type Explanation"],
		Tags:                    parseTags(fields["Tags"]),
	}, nil
}

// parseKeyValueBlock splits a "Key: value" block into a field map. A line
// without a colon continues the previous key's value on its own line.
func parseKeyValueBlock(raw string) map[string]string {
	fields := make(map[string]string)

	var currentKey string
	var currentValue []string
	flush := func() {
		if currentKey != "" {
			fields[currentKey] = strings.TrimSpace(strings.Join(currentValue, "\n"))
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx := strings.Index(line, ":"); idx >= 0 {
			flush()
			key := strings.TrimSpace(strings.Trim(strings.TrimSpace(line[:idx]), "*"))
			currentKey = key
			currentValue = []string{strings.TrimSpace(line[idx+1:])}
		} else if currentKey != "" {
			currentValue = append(currentValue, line)
		}
	}
	flush()

	return fields
}

// parseTags coerces a JSON-style bracketed list or comma-separated string
// into a trimmed, whitespace-free tag list.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return cleanTags(tags)
		}
	}

	raw = strings.Trim(raw, "[]")
	return cleanTags(strings.Split(raw, ","))
}

func cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ReplaceAll(strings.TrimSpace(t), " ", "")
		t = strings.Trim(t, `"'`)
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return cleaned
}

// trimTitle cleans up a raw title-extraction response.
func trimTitle(title string) string {
	title = strings.TrimSpace(title)
	return strings.Trim(title, `"'`)
}

// parseISODate validates that raw (once trimmed) is a YYYY-MM-DD date.
func parseISODate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.Format("2006-01-02"), true
	}
	return "", false
}

// decodeAnalysis converts a cache entry's generic map back into an Analysis.
func decodeAnalysis(raw map[string]any) (core.Analysis, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return core.Analysis{}, err
	}
	var analysis core.Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return core.Analysis{}, err
	}
	return analysis, nil
}

// encodeAnalysis converts an Analysis into the generic map the cache stores.
func encodeAnalysis(analysis core.Analysis) (map[string]any, error) {
	data, err := json.Marshal(analysis)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
