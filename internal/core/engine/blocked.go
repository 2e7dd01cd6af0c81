package engine

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/core/normalize"
)

// BlockedMatcher runs an approximate join restricted to dictionary entries
// that share the query's first character. Candidate pairs come from a
// MinHash LSH index over character n-grams and must reach the blocking
// threshold on exact n-gram Jaccard similarity. The best candidate by
// Similarity is kept when it reaches the similarity threshold.
type BlockedMatcher struct {
	SimilarityThreshold float64
	BlockingThreshold   float64
	NGramSize           int
	Permutations        int
	Workers             int
}

// Name implements Stage.
func (m *BlockedMatcher) Name() string { return "blocked" }

type lshBlock struct {
	positions []int
	buckets   map[uint64][]int
}

// Match implements Stage.
func (m *BlockedMatcher) Match(ctx context.Context, queries, dictionary []core.NameRecord) ([]core.MatchResult, error) {
	n := m.NGramSize
	if n < 1 {
		n = 3
	}
	h := newHasher(m.Permutations)
	bands, rows := bandLayout(m.BlockingThreshold, len(h.seeds))
	useLSH := m.BlockingThreshold > 0

	grams := make([][]string, len(dictionary))
	blocks := make(map[byte]*lshBlock)
	for pos, entry := range dictionary {
		if entry.NormalizedName == "" {
			continue
		}
		grams[pos] = normalize.NGrams(entry.NormalizedName, n)
		key := entry.NormalizedName[0]
		block, ok := blocks[key]
		if !ok {
			block = &lshBlock{buckets: make(map[uint64][]int)}
			blocks[key] = block
		}
		block.positions = append(block.positions, pos)
		if useLSH {
			sig := h.sign(grams[pos])
			for band := 0; band < bands; band++ {
				k := bandKey(sig, band, rows)
				block.buckets[k] = append(block.buckets[k], pos)
			}
		}
	}

	picks := make([]best, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(m.Workers))
	for i := range queries {
		query := queries[i]
		if query.NormalizedName == "" {
			continue
		}
		block, ok := blocks[query.NormalizedName[0]]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			qgrams := normalize.NGrams(query.NormalizedName, n)
			var candidates []int
			if useLSH {
				candidates = block.candidates(h.sign(qgrams), bands, rows)
			} else {
				candidates = block.positions
			}
			for _, pos := range candidates {
				if jaccard(qgrams, grams[pos]) < m.BlockingThreshold {
					continue
				}
				score := Similarity(query.NormalizedName, dictionary[pos].NormalizedName)
				if score >= m.SimilarityThreshold {
					picks[i].offer(pos, score)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]core.MatchResult, 0)
	for i, pick := range picks {
		if !pick.ok {
			continue
		}
		results = append(results, core.MatchResult{
			QueryID:   queries[i].ID,
			DictID:    dictionary[pick.pos].ID,
			MatchType: core.MatchTypeFuzzyBlocked,
			Score:     pick.score,
		})
	}
	return results, nil
}

func (b *lshBlock) candidates(sig signature, bands, rows int) []int {
	seen := make(map[int]struct{})
	for band := 0; band < bands; band++ {
		for _, pos := range b.buckets[bandKey(sig, band, rows)] {
			seen[pos] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for pos := range seen {
		out = append(out, pos)
	}
	sort.Ints(out)
	return out
}
