package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/core"
)

func newBlocked(blocking float64) *BlockedMatcher {
	return &BlockedMatcher{
		SimilarityThreshold: 0.9,
		BlockingThreshold:   blocking,
		NGramSize:           3,
		Permutations:        128,
		Workers:             4,
	}
}

func TestBlockedMatcherFindsNearDuplicate(t *testing.T) {
	dict := records(
		"1", "Siemens Healthineers AG",
		"2", "Sony Group",
		"3", "Oracle Corp",
	)
	queries := records(
		"q1", "Siemens Healthineer",
		"q2", "Noracle",
		"q3", "Samsung",
	)

	results, err := newBlocked(0.5).Match(context.Background(), queries, dict)
	require.NoError(t, err)

	got := byQuery(results)
	require.Contains(t, got, "q1")
	assert.Equal(t, "1", got["q1"].DictID)
	assert.Equal(t, core.MatchTypeFuzzyBlocked, got["q1"].MatchType)
	assert.GreaterOrEqual(t, got["q1"].Score, 0.9)
	assert.NotContains(t, got, "q2", "different first character is a different block")
	assert.NotContains(t, got, "q3")
}

func TestBlockedMatcherWithoutBlockingThresholdScansBlock(t *testing.T) {
	dict := records("1", "Kraftwerk Union", "2", "Kraftwerk Unions Verband")
	queries := records("q1", "Kraftwerk Unoin")

	results, err := newBlocked(0).Match(context.Background(), queries, dict)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].DictID)
}

func TestBlockedMatcherDeterministic(t *testing.T) {
	dict := records(
		"1", "Nordwind Logistik",
		"2", "Nordwind Logistics",
		"3", "Nordwand Logistik",
		"4", "Nordic Logistics",
	)
	queries := records("q1", "Nordwind Logistik GmbH", "q2", "Nordwind Logistic", "q3", "Nordik Logistics")

	first, err := newBlocked(0.5).Match(context.Background(), queries, dict)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := newBlocked(0.5).Match(context.Background(), queries, dict)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBandLayout(t *testing.T) {
	for _, threshold := range []float64{0.3, 0.5, 0.8} {
		bands, rows := bandLayout(threshold, 128)
		assert.LessOrEqual(t, bands*rows, 128)
		assert.Greater(t, collision(0.95, bands, rows), 0.9, "threshold %v", threshold)
		assert.Less(t, collision(0.05, bands, rows), 0.1, "threshold %v", threshold)
	}
}

func TestMinHashEstimatesJaccard(t *testing.T) {
	h := newHasher(128)
	a := h.sign([]string{"abc", "bcd", "cde"})
	b := h.sign([]string{"abc", "bcd", "cde"})
	assert.Equal(t, a, b)

	c := h.sign([]string{"xyz", "yzw"})
	same := 0
	for i := range a {
		if a[i] == c[i] {
			same++
		}
	}
	assert.Less(t, same, 10)
	assert.InDelta(t, 0.5, jaccard([]string{"a", "b", "c"}, []string{"b", "c", "d"}), 1e-9)
}
