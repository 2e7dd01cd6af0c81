package core

// MatchType labels which cascade stage produced a match.
type MatchType string

const (
	MatchTypePerfect          MatchType = "Perfect"
	MatchTypeFuzzyBlocked     MatchType = "FuzzyBlocked"
	MatchTypeFuzzyTokenSearch MatchType = "FuzzyTokenSearch"
	MatchTypeRarityToken      MatchType = "RarityToken"
)

// MatchTypes lists the match types in the order the cascade assigns them.
var MatchTypes = []MatchType{
	MatchTypePerfect,
	MatchTypeFuzzyBlocked,
	MatchTypeFuzzyTokenSearch,
	MatchTypeRarityToken,
}

// NameRecord is a single organization name on either side of the join.
// Records are built once by the normalizer and never mutated afterwards.
type NameRecord struct {
	ID             string `json:"id"`
	RawName        string `json:"raw_name"`
	NormalizedName string `json:"normalized_name"`
}

// MatchResult assigns a query record to at most one dictionary record.
type MatchResult struct {
	QueryID   string    `json:"query_id"`
	DictID    string    `json:"dict_id"`
	MatchType MatchType `json:"match_type"`
	// Score is the engine score that satisfied the stage threshold.
	// Perfect matches carry 1.
	Score float64 `json:"score"`
}

// Thresholds carries the numeric cut-offs for the approximate stages.
type Thresholds struct {
	// Similarity is the minimum Jaro-Winkler score for the blocked and
	// token-search stages.
	Similarity float64 `json:"similarity" mapstructure:"similarity_threshold" validate:"gte=0,lte=1"`
	// Blocking is the minimum n-gram Jaccard similarity a candidate pair
	// must reach in the approximate join.
	Blocking float64 `json:"blocking" mapstructure:"blocking_threshold" validate:"gte=0,lte=1"`
	// Rarity is the minimum normalized rarity score.
	Rarity float64 `json:"rarity" mapstructure:"rarity_threshold" validate:"gte=0,lte=1"`
}

// DefaultThresholds returns the cut-offs used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Similarity: 0.9,
		Blocking:   0.5,
		Rarity:     0.6,
	}
}

// QueryIDs returns the set of query ids present in results.
func QueryIDs(results []MatchResult) map[string]struct{} {
	ids := make(map[string]struct{}, len(results))
	for _, r := range results {
		ids[r.QueryID] = struct{}{}
	}
	return ids
}
