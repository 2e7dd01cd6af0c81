package normalize

import (
	"strings"
	"unicode"
)

// Words splits a normalized name on whitespace.
func Words(normalized string) []string {
	return strings.Fields(normalized)
}

// Tokens splits a normalized name on runs of non-alphanumeric characters
// and keeps distinct tokens of at least minLen runes, in first-seen order.
func Tokens(normalized string, minLen int) []string {
	parts := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if len([]rune(part)) < minLen {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// NGrams returns the distinct character n-grams of s. Strings shorter than
// n yield themselves as a single gram; "" yields nil.
func NGrams(s string, n int) []string {
	if s == "" || n <= 0 {
		return nil
	}
	r := []rune(s)
	if len(r) <= n {
		return []string{s}
	}
	seen := make(map[string]struct{}, len(r))
	out := make([]string, 0, len(r)-n+1)
	for i := 0; i+n <= len(r); i++ {
		gram := string(r[i : i+n])
		if _, ok := seen[gram]; ok {
			continue
		}
		seen[gram] = struct{}{}
		out = append(out, gram)
	}
	return out
}
