package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/metrics"
	"github.com/namelens/orgmatch/internal/observability"
)

// Cascade runs stages in order over a shrinking set of unresolved queries.
type Cascade struct {
	Stages []Stage
	// Thresholds are the values the stages were built with; MatchTables
	// rejects out-of-range values before any stage runs.
	Thresholds core.Thresholds
	Logger     observability.Logger
	Clock      func() time.Time
}

// NewCascade returns the standard four-stage cascade.
func NewCascade(opts Options, index IndexBuilder, logger observability.Logger) *Cascade {
	th := opts.Thresholds
	return &Cascade{
		Thresholds: th,
		Stages: []Stage{
			ExactMatcher{},
			&BlockedMatcher{
				SimilarityThreshold: th.Similarity,
				BlockingThreshold:   th.Blocking,
				NGramSize:           opts.NGramSize,
				Permutations:        opts.Permutations,
				Workers:             opts.Workers,
			},
			&TokenSearchMatcher{
				Index:               index,
				SimilarityThreshold: th.Similarity,
				Limit:               opts.TokenSearchLimit,
				Logger:              logger,
			},
			&RarityMatcher{
				ScoreThreshold:   th.Rarity,
				MinTokenLength:   opts.RarityMinTokenLength,
				StopwordQuantile: opts.StopwordQuantile,
			},
		},
		Logger: logger,
	}
}

// Run matches queries against dictionary. Each query appears at most once
// in the output, attributed to the first stage that resolved it. The
// dictionary's normalized names must be unique; a duplicate aborts the run
// before any stage executes.
func (c *Cascade) Run(ctx context.Context, queries, dictionary []core.NameRecord) ([]core.MatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := CheckUniqueKeys(dictionary); err != nil {
		return nil, err
	}
	logger := observability.OrNop(c.Logger)

	results := make([]core.MatchResult, 0)
	resolved := make(map[string]struct{})
	for _, stage := range c.Stages {
		remaining := unresolved(queries, resolved)
		if len(remaining) == 0 {
			logger.Debug("stage skipped", zap.String("stage", stage.Name()))
			continue
		}

		start := c.now()
		out, err := stage.Match(ctx, remaining, dictionary)
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", stage.Name(), err)
		}
		elapsed := c.now().Sub(start)

		accepted := 0
		for _, r := range out {
			if _, dup := resolved[r.QueryID]; dup {
				continue
			}
			resolved[r.QueryID] = struct{}{}
			results = append(results, r)
			accepted++
		}

		metrics.RecordStage(stage.Name(), accepted, elapsed)
		logger.Info("stage complete",
			zap.String("stage", stage.Name()),
			zap.Int("candidates", len(remaining)),
			zap.Int("matches", accepted),
			zap.Duration("duration", elapsed))
	}
	return results, nil
}

// CheckUniqueKeys reports the first pair of dictionary entries sharing a
// normalized name.
func CheckUniqueKeys(dictionary []core.NameRecord) error {
	seen := make(map[string]string, len(dictionary))
	for _, entry := range dictionary {
		if first, ok := seen[entry.NormalizedName]; ok {
			return &core.DuplicateKeyError{Key: entry.NormalizedName, FirstID: first, SecondID: entry.ID}
		}
		seen[entry.NormalizedName] = entry.ID
	}
	return nil
}

func unresolved(queries []core.NameRecord, resolved map[string]struct{}) []core.NameRecord {
	out := make([]core.NameRecord, 0, len(queries))
	for _, q := range queries {
		if _, ok := resolved[q.ID]; !ok {
			out = append(out, q)
		}
	}
	return out
}

func (c *Cascade) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
