// Package engine implements the cascading organization-name matcher.
//
// Four stages run in a fixed order (exact, blocked approximate join, token
// search, rarity-weighted tokens). Each stage only sees the queries left
// unresolved by the stages before it.
package engine

import (
	"context"
	"runtime"

	"github.com/antzucaro/matchr"

	"github.com/namelens/orgmatch/internal/core"
)

// Stage is one matching engine in the cascade.
type Stage interface {
	// Name returns a short identifier used in logs and metrics.
	Name() string
	// Match returns at most one result per query.
	Match(ctx context.Context, queries, dictionary []core.NameRecord) ([]core.MatchResult, error)
}

// Options tunes the approximate stages.
type Options struct {
	Thresholds core.Thresholds

	NGramSize    int
	Permutations int
	Workers      int

	TokenSearchLimit int

	RarityMinTokenLength int
	// StopwordQuantile drops rarity tokens whose document frequency is
	// above this quantile of all token frequencies.
	StopwordQuantile float64
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		Thresholds:           core.DefaultThresholds(),
		NGramSize:            3,
		Permutations:         128,
		Workers:              runtime.NumCPU(),
		TokenSearchLimit:     25,
		RarityMinTokenLength: 5,
		StopwordQuantile:     0.8,
	}
}

// Similarity is the normalized edit similarity shared by the blocked and
// token-search stages.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return matchr.JaroWinkler(a, b, false)
}

// best tracks the highest-scoring candidate for one query. Ties go to the
// candidate with the lowest dictionary position so that the outcome does
// not depend on candidate enumeration order.
type best struct {
	pos   int
	score float64
	ok    bool
}

func (b *best) offer(pos int, score float64) {
	if !b.ok || score > b.score || (score == b.score && pos < b.pos) {
		b.pos, b.score, b.ok = pos, score, true
	}
}

func workerCount(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
