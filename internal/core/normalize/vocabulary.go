package normalize

import (
	"sort"
	"strings"
)

// VocabularyVersion identifies the legal-form and noise word sets. Bump it
// whenever either set changes so stored keys can be invalidated.
const VocabularyVersion = "2"

// Entries are stored in folded form: lowercase ASCII letters and digits,
// multi-word entries separated by a single space.
var legalForms = buildSet(
	// international
	"limited", "ltd", "inc", "incorporated", "llc", "llp", "lp", "plc",
	"co", "corp", "corporation", "company", "holding", "holdings", "group",
	"sa", "sarl", "sas", "sasu", "spa", "srl", "sl", "bv", "nv", "ab", "oy", "aps", "pty",
	// german
	"gmbh", "mbh", "ag", "kg", "ohg", "ug", "se", "kgaa", "gbr", "ev", "ek", "eg",
	"aktiengesellschaft",
	"kommanditgesellschaft",
	"kommanditgesellschaft auf aktien",
	"offene handelsgesellschaft",
	"unternehmergesellschaft",
	"haftungsbeschraenkt",
	"gesellschaft mit beschraenkter haftung",
	"gesellschaft buergerlichen rechts",
	"eingetragener verein",
	"eingetragene genossenschaft",
	"eingetragener kaufmann",
	"gruppe",
	"konzern",
)

var noiseWords = buildSet(
	// connectors
	"and", "und", "et", "the", "der", "die", "das",
	// organisational qualifiers
	"filiale", "zweigniederlassung", "niederlassung", "partner", "partners",
	// country and region qualifiers
	"deutschland", "germany", "austria", "oesterreich", "schweiz", "switzerland",
	"europe", "europa", "international", "intl", "emea", "dach",
	// status words
	"closed", "geschlossen", "inactive", "dissolved", "liquidation", "insolvent",
)

type vocabulary struct {
	phrases map[string]struct{}
	// longest phrase in tokens, bounds the lookahead in removePhrases
	maxWords int
}

func buildSet(entries ...string) vocabulary {
	v := vocabulary{phrases: make(map[string]struct{}, len(entries))}
	for _, entry := range entries {
		v.phrases[entry] = struct{}{}
		if n := len(strings.Fields(entry)); n > v.maxWords {
			v.maxWords = n
		}
	}
	return v
}

func (v vocabulary) contains(phrase string) bool {
	_, ok := v.phrases[phrase]
	return ok
}

func (v vocabulary) list() []string {
	out := make([]string, 0, len(v.phrases))
	for phrase := range v.phrases {
		out = append(out, phrase)
	}
	sort.Strings(out)
	return out
}

// LegalForms returns the folded legal-form vocabulary, sorted.
func LegalForms() []string {
	return legalForms.list()
}

// NoiseWords returns the folded noise vocabulary, sorted.
func NoiseWords() []string {
	return noiseWords.list()
}
