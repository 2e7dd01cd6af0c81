package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/core"
)

func rarityDictionary() []core.NameRecord {
	return records(
		"a", "Zephyrine Analytics",
		"b", "Northwind Traders",
		"c", "Contoso Analytics",
	)
}

func TestRarityMatcherSingleRareTokenScoresOne(t *testing.T) {
	for _, threshold := range []float64{0.6, 1.0} {
		m := &RarityMatcher{ScoreThreshold: threshold, MinTokenLength: 5, StopwordQuantile: 0.8}
		results, err := m.Match(context.Background(), records("q1", "Zephyrine"), rarityDictionary())
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a", results[0].DictID)
		assert.Equal(t, core.MatchTypeRarityToken, results[0].MatchType)
		assert.Equal(t, 1.0, results[0].Score)
	}
}

func TestRarityMatcherDropsCommonTokens(t *testing.T) {
	m := &RarityMatcher{ScoreThreshold: 0.1, MinTokenLength: 5, StopwordQuantile: 0.8}
	results, err := m.Match(context.Background(), records("q1", "Analytics Group"), rarityDictionary())
	require.NoError(t, err)
	assert.Empty(t, results)

	// with no suppression both analytics entries tie and the first wins
	m.StopwordQuantile = 1
	results, err = m.Match(context.Background(), records("q1", "Analytics Group"), rarityDictionary())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].DictID)
}

func TestRarityMatcherWeightsNormalizePerQuery(t *testing.T) {
	dict := records(
		"a", "Bluepeak Ventures",
		"b", "Bluepeak Holdings Capital",
		"c", "Redstone Ventures",
		"d", "Greenfield Capital",
	)
	// bluepeak df=2, ventures df=2, capital df=2, redstone df=1, greenfield df=1
	m := &RarityMatcher{ScoreThreshold: 0.6, MinTokenLength: 5, StopwordQuantile: 1}
	results, err := m.Match(context.Background(), records("q1", "Redstone Capital Ventures"), dict)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c", results[0].DictID)
	assert.InDelta(t, 0.75, results[0].Score, 1e-9)
}

func TestRarityMatcherShortTokensIgnored(t *testing.T) {
	m := &RarityMatcher{ScoreThreshold: 0.5, MinTokenLength: 5, StopwordQuantile: 0.8}
	results, err := m.Match(context.Background(), records("q1", "Bau"), records("a", "Bau Partner"))
	require.NoError(t, err)
	assert.Empty(t, results)
}
