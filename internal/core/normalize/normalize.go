// Package normalize maps raw organization names to canonical comparison keys.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var separatorReplacer = strings.NewReplacer(
	"&", " ",
	"/", " ",
	`\`, " ",
	"+", " ",
)

// Compound diacritics expand to two letters and must run before the generic
// accent stripping, which would otherwise reduce "ü" to "u".
var compoundReplacer = strings.NewReplacer(
	"ß", "ss",
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
)

// Letters that survive NFD decomposition without a combining mark.
var letterReplacer = strings.NewReplacer(
	"æ", "ae",
	"œ", "oe",
	"ø", "o",
	"ł", "l",
	"đ", "d",
	"ð", "d",
	"þ", "th",
	"ı", "i",
)

// Normalize returns the canonical comparison key for raw. It never fails
// and returns "" when raw consists only of legal forms, noise words or
// punctuation. Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.TrimSpace(strings.ToLower(norm.NFC.String(raw)))
	if s == "" {
		return ""
	}

	s = separatorReplacer.Replace(s)
	s = compoundReplacer.Replace(s)

	var tokens []string
	for _, word := range splitWords(s) {
		if folded := fold(word); folded != "" {
			tokens = append(tokens, folded)
		}
	}

	// Removing one phrase can join its neighbours into another, so repeat
	// until neither vocabulary matches.
	for {
		before := len(tokens)
		tokens = removePhrases(tokens, legalForms)
		tokens = removePhrases(tokens, noiseWords)
		if len(tokens) == before {
			break
		}
	}

	return strings.Join(tokens, " ")
}

// splitWords breaks s at every rune that is not a letter, digit or
// combining mark, so "mueller-ag" and "tech,inc" yield separate words.
// Apostrophes join ("l'oreal"), and periods join runs of single-character
// abbreviations ("e.v.", "s.a.", "g.m.b.h.") but split anything longer
// ("foo.inc").
func splitWords(s string) []string {
	var words []string
	for _, run := range strings.FieldsFunc(s, isWordBoundary) {
		parts := strings.FieldsFunc(run, func(r rune) bool { return r == '.' })
		if len(parts) > 1 && allSingleChar(parts) {
			words = append(words, strings.Join(parts, ""))
			continue
		}
		words = append(words, parts...)
	}
	return words
}

func isWordBoundary(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r):
		return false
	case r == '.', r == '\'', r == '’':
		return false
	}
	return true
}

func allSingleChar(parts []string) bool {
	for _, part := range parts {
		n := 0
		for _, r := range part {
			if !unicode.Is(unicode.Mn, r) && r != '\'' && r != '’' {
				n++
			}
		}
		if n > 1 {
			return false
		}
	}
	return true
}

// fold transliterates a single word to ASCII and drops every
// character outside [a-z0-9].
func fold(token string) string {
	// transform.Chain is stateful; build one per call so Normalize stays
	// safe for concurrent use.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(stripMarks, letterReplacer.Replace(token))
	if err != nil {
		ascii = token
	}

	var b strings.Builder
	b.Grow(len(ascii))
	for _, r := range ascii {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// removePhrases drops every maximal run of tokens that matches a vocabulary
// phrase, preferring the longest phrase at each position.
func removePhrases(tokens []string, vocab vocabulary) []string {
	out := tokens[:0:0]
	for i := 0; i < len(tokens); {
		matched := 0
		for n := min(vocab.maxWords, len(tokens)-i); n > 0; n-- {
			if vocab.contains(strings.Join(tokens[i:i+n], " ")) {
				matched = n
				break
			}
		}
		if matched > 0 {
			i += matched
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}
