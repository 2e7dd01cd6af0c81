package engine

import (
	"context"
	"math"
	"sort"

	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/core/normalize"
)

// RarityMatcher weights each dictionary token by the inverse of its
// document frequency. Tokens above the stopword quantile of frequencies are
// discarded. A query's weights are normalized over its surviving tokens and
// a dictionary entry scores the summed weight of the tokens it shares with
// the query.
type RarityMatcher struct {
	ScoreThreshold   float64
	MinTokenLength   int
	StopwordQuantile float64
}

// Name implements Stage.
func (m *RarityMatcher) Name() string { return "rarity" }

// Match implements Stage.
func (m *RarityMatcher) Match(ctx context.Context, queries, dictionary []core.NameRecord) ([]core.MatchResult, error) {
	minLen := m.MinTokenLength
	if minLen < 1 {
		minLen = 5
	}

	postings := make(map[string][]int)
	for pos, entry := range dictionary {
		for _, token := range normalize.Tokens(entry.NormalizedName, minLen) {
			postings[token] = append(postings[token], pos)
		}
	}
	if len(postings) == 0 {
		return []core.MatchResult{}, nil
	}

	freqs := make([]float64, 0, len(postings))
	for _, list := range postings {
		freqs = append(freqs, float64(len(list)))
	}
	cutoff := quantile(freqs, m.StopwordQuantile)
	for token, list := range postings {
		if float64(len(list)) > cutoff {
			delete(postings, token)
		}
	}

	results := make([]core.MatchResult, 0)
	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := normalize.Tokens(query.NormalizedName, minLen)
		total := 0.0
		kept := tokens[:0:0]
		for _, token := range tokens {
			if list, ok := postings[token]; ok {
				total += 1 / float64(len(list))
				kept = append(kept, token)
			}
		}
		if total == 0 {
			continue
		}

		scores := make(map[int]float64)
		for _, token := range kept {
			list := postings[token]
			weight := (1 / float64(len(list))) / total
			for _, pos := range list {
				scores[pos] += weight
			}
		}

		var pick best
		for pos, score := range scores {
			pick.offer(pos, score)
		}
		if !pick.ok || pick.score < m.ScoreThreshold-1e-9 {
			continue
		}
		results = append(results, core.MatchResult{
			QueryID:   query.ID,
			DictID:    dictionary[pick.pos].ID,
			MatchType: core.MatchTypeRarityToken,
			Score:     math.Min(pick.score, 1),
		})
	}
	return results, nil
}

// quantile returns the q-quantile of values using linear interpolation
// between closest ranks.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	switch {
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	rank := q * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
