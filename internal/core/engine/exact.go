package engine

import (
	"context"

	"github.com/namelens/orgmatch/internal/core"
)

// ExactMatcher pairs queries whose normalized name equals a dictionary
// normalized name.
type ExactMatcher struct{}

// Name implements Stage.
func (ExactMatcher) Name() string { return "exact" }

// Match implements Stage.
func (ExactMatcher) Match(ctx context.Context, queries, dictionary []core.NameRecord) ([]core.MatchResult, error) {
	byName := make(map[string]int, len(dictionary))
	for i, entry := range dictionary {
		if entry.NormalizedName == "" {
			continue
		}
		if _, seen := byName[entry.NormalizedName]; !seen {
			byName[entry.NormalizedName] = i
		}
	}

	results := make([]core.MatchResult, 0)
	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pos, ok := byName[query.NormalizedName]
		if !ok || query.NormalizedName == "" {
			continue
		}
		results = append(results, core.MatchResult{
			QueryID:   query.ID,
			DictID:    dictionary[pos].ID,
			MatchType: core.MatchTypePerfect,
			Score:     1,
		})
	}
	return results, nil
}
