package textmodel

import "strings"

// DefaultSanitizeChars are removed from corpus text before a retried build.
const DefaultSanitizeChars = "[]'()\""

// Sanitize returns a copy of texts with every rune of chars removed. The
// result has the same length and order as texts.
func Sanitize(texts []string, chars string) []string {
	out := make([]string, len(texts))
	if chars == "" {
		copy(out, texts)
		return out
	}
	drop := func(r rune) rune {
		if strings.ContainsRune(chars, r) {
			return -1
		}
		return r
	}
	for i, s := range texts {
		out[i] = strings.Map(drop, s)
	}
	return out
}
