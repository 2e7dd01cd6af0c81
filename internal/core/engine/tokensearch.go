package engine

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/core/normalize"
	"github.com/namelens/orgmatch/internal/observability"
)

// TokenIndex retrieves dictionary candidates for a set of query tokens.
// Each token is treated as a prefix and tokens are combined with OR.
type TokenIndex interface {
	// Search returns dictionary positions ordered by retrieval rank.
	Search(ctx context.Context, tokens []string, limit int) ([]int, error)
	Close() error
}

// IndexBuilder builds a TokenIndex over a dictionary.
type IndexBuilder interface {
	BuildTokenIndex(ctx context.Context, dictionary []core.NameRecord) (TokenIndex, error)
}

// TokenSearchMatcher retrieves up to Limit candidates per query from a
// full-text index and keeps the best candidate by Similarity when it
// reaches the similarity threshold. A failed search skips that query.
type TokenSearchMatcher struct {
	Index               IndexBuilder
	SimilarityThreshold float64
	Limit               int
	Logger              observability.Logger
}

// Name implements Stage.
func (m *TokenSearchMatcher) Name() string { return "token_search" }

// Match implements Stage.
func (m *TokenSearchMatcher) Match(ctx context.Context, queries, dictionary []core.NameRecord) ([]core.MatchResult, error) {
	builder := m.Index
	if builder == nil {
		builder = MemoryIndex{}
	}
	index, err := builder.BuildTokenIndex(ctx, dictionary)
	if err != nil {
		return nil, err
	}
	defer func() { _ = index.Close() }()

	limit := m.Limit
	if limit <= 0 {
		limit = 25
	}
	logger := observability.OrNop(m.Logger)

	results := make([]core.MatchResult, 0)
	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := SearchTokens(query.NormalizedName)
		if len(tokens) == 0 {
			continue
		}
		positions, err := index.Search(ctx, tokens, limit)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			logger.Debug("token search skipped query",
				zap.String("query_id", query.ID),
				zap.Error(err))
			continue
		}
		if len(positions) > limit {
			positions = positions[:limit]
		}
		var pick best
		for _, pos := range positions {
			if pos < 0 || pos >= len(dictionary) {
				continue
			}
			score := Similarity(query.NormalizedName, dictionary[pos].NormalizedName)
			if score >= m.SimilarityThreshold {
				pick.offer(pos, score)
			}
		}
		if !pick.ok {
			continue
		}
		results = append(results, core.MatchResult{
			QueryID:   query.ID,
			DictID:    dictionary[pick.pos].ID,
			MatchType: core.MatchTypeFuzzyTokenSearch,
			Score:     pick.score,
		})
	}
	return results, nil
}

// SearchTokens returns the distinct words of a normalized name in order of
// first appearance.
func SearchTokens(normalized string) []string {
	words := normalize.Words(normalized)
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// MemoryIndex is an IndexBuilder that keeps the dictionary words in memory.
// Candidates are ranked by how many query tokens they match, then by
// dictionary position.
type MemoryIndex struct{}

// BuildTokenIndex implements IndexBuilder.
func (MemoryIndex) BuildTokenIndex(_ context.Context, dictionary []core.NameRecord) (TokenIndex, error) {
	words := make([][]string, len(dictionary))
	for i, entry := range dictionary {
		words[i] = normalize.Words(entry.NormalizedName)
	}
	return &memoryIndex{words: words}, nil
}

type memoryIndex struct {
	words [][]string
}

type memoryHit struct {
	pos  int
	hits int
}

func (m *memoryIndex) Search(ctx context.Context, tokens []string, limit int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := make([]memoryHit, 0)
	for pos, words := range m.words {
		count := 0
		for _, token := range tokens {
			for _, w := range words {
				if strings.HasPrefix(w, token) {
					count++
					break
				}
			}
		}
		if count > 0 {
			hits = append(hits, memoryHit{pos: pos, hits: count})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].hits > hits[j].hits })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.pos
	}
	return out, nil
}

func (m *memoryIndex) Close() error { return nil }
