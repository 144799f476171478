package core

import "strings"

// TruncateWords cuts text to at most maxChars, preferring a word boundary
// over a hard cut so a truncated prompt still ends on a whole word.
func TruncateWords(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
