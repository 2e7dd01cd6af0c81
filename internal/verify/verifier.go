// Package verify sends approximate matches to a judgment service in
// fixed-size, checkpointed batches so an interrupted run can resume.
package verify

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/namelens/orgmatch/internal/ailink"
	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/metrics"
	"github.com/namelens/orgmatch/internal/observability"
)

// Columns appended to the verified table.
const (
	ColumnDecision  = "LLM_decision"
	ColumnReason    = "LLM_reason"
	ColumnIncorrect = "LLM_incorrect"
)

const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 4
)

var validate = validator.New()

// Columns names the inputs read from the match table.
type Columns struct {
	QueryName string `mapstructure:"query_name" validate:"required"`
	DictName  string `mapstructure:"dict_name" validate:"required"`
	DictID    string `mapstructure:"dict_id" validate:"required"`
	MatchType string `mapstructure:"match_type" validate:"required"`
}

// DefaultColumns uses the match table's dict_id and match_type columns.
func DefaultColumns(queryName, dictName string) Columns {
	return Columns{
		QueryName: queryName,
		DictName:  dictName,
		DictID:    "dict_id",
		MatchType: "match_type",
	}
}

// Options tunes batching and fan-out.
type Options struct {
	BatchSize   int
	Concurrency int
	// ExcludeMatchTypes lists match types that are never sent for review.
	ExcludeMatchTypes []string
}

// DefaultOptions skips exact and manually confirmed matches.
func DefaultOptions() Options {
	return Options{
		BatchSize:         DefaultBatchSize,
		Concurrency:       DefaultConcurrency,
		ExcludeMatchTypes: []string{string(core.MatchTypePerfect), "Manual"},
	}
}

// Verifier runs the resumable verification pass.
type Verifier struct {
	Judge       ailink.Judge
	Checkpoints *Checkpoints
	Retry       RetryPolicy
	Options     Options
	Logger      observability.Logger
}

// Result summarizes one Run.
type Result struct {
	Table   *core.Table
	Batches int
	// Resumed counts batches loaded from existing checkpoints.
	Resumed int
	// Requested counts rows sent to the judge during this run.
	Requested int
	Counts    map[ailink.Decision]int
}

// New builds a verifier backed by the configured judgment service. Missing
// credentials are reported before any prompt is loaded or request sent.
func New(aiCfg ailink.Config, checkpoints *Checkpoints, opts Options, cache ailink.Cache, ttl time.Duration, logger observability.Logger) (*Verifier, error) {
	if err := aiCfg.Validate(); err != nil {
		return nil, err
	}
	service, err := ailink.NewService(aiCfg)
	if err != nil {
		return nil, err
	}

	var judge ailink.Judge = service
	if cache != nil && ttl > 0 {
		judge = &ailink.CachedJudge{
			Next:       service,
			Cache:      cache,
			TTL:        ttl,
			Model:      service.Model(),
			PromptSlug: service.PromptSlug(),
		}
	}

	return &Verifier{
		Judge:       judge,
		Checkpoints: checkpoints,
		Retry:       DefaultRetryPolicy(),
		Options:     opts,
		Logger:      logger,
	}, nil
}

type pending struct {
	rowID     int
	queryName string
	dictName  string
}

// Run verifies every eligible row of table. Eligible rows are split into
// batches of BatchSize in table order; a batch with a checkpoint is loaded
// instead of judged. The
// returned table is a copy of the input with the LLM columns set.
func (v *Verifier) Run(ctx context.Context, table *core.Table, cols Columns) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if v == nil || v.Judge == nil {
		return nil, errors.New("verifier has no judge configured")
	}
	if v.Checkpoints == nil {
		return nil, errors.New("verifier has no checkpoint store configured")
	}
	if table == nil {
		return nil, errors.New("verification table is nil")
	}
	if err := validate.Struct(cols); err != nil {
		return nil, fmt.Errorf("invalid verification columns: %w", err)
	}
	positions, err := table.Require("verification", cols.QueryName, cols.DictName, cols.DictID, cols.MatchType)
	if err != nil {
		return nil, err
	}
	queryCol, dictCol, dictIDCol, typeCol := positions[0], positions[1], positions[2], positions[3]

	logger := observability.OrNop(v.Logger)
	opts := v.options()
	excluded := make(map[string]struct{}, len(opts.ExcludeMatchTypes))
	for _, mt := range opts.ExcludeMatchTypes {
		excluded[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}

	var eligible []pending
	for row := 0; row < table.Len(); row++ {
		matchType := strings.ToLower(strings.TrimSpace(table.Cell(row, typeCol)))
		if _, skip := excluded[matchType]; skip {
			continue
		}
		if strings.TrimSpace(table.Cell(row, dictIDCol)) == "" {
			continue
		}
		eligible = append(eligible, pending{
			rowID:     row,
			queryName: table.Cell(row, queryCol),
			dictName:  table.Cell(row, dictCol),
		})
	}

	batches := (len(eligible) + opts.BatchSize - 1) / opts.BatchSize
	result := &Result{Batches: batches, Counts: make(map[ailink.Decision]int)}
	decisions := make(map[int]RowDecision, len(eligible))

	for index := 0; index < batches; index++ {
		done, err := v.Checkpoints.Exists(index)
		if err != nil {
			return nil, err
		}
		if done {
			chunk, err := v.Checkpoints.Load(index)
			if err != nil {
				return nil, err
			}
			for _, row := range chunk.Rows {
				decisions[row.RowID] = row
			}
			result.Resumed++
			logger.Debug("Checkpoint found, skipping batch", zap.Int("batch", index))
			continue
		}

		start := index * opts.BatchSize
		work := eligible[start:min(start+opts.BatchSize, len(eligible))]

		began := time.Now()
		rows, err := v.judgeBatch(ctx, work, opts.Concurrency)
		if err != nil {
			return nil, fmt.Errorf("batch %d interrupted: %w", index, err)
		}
		if err := v.Checkpoints.Save(&Chunk{Index: index, Rows: rows}); err != nil {
			return nil, err
		}
		metrics.RecordCheckpoint()
		result.Requested += len(work)
		for _, row := range rows {
			decisions[row.RowID] = row
		}
		logger.Info("Verification batch committed",
			zap.Int("batch", index),
			zap.Int("batches", batches),
			zap.Int("rows", len(rows)),
			zap.Duration("duration", time.Since(began)),
		)
	}

	result.Table = merge(table, decisions)
	for _, d := range decisions {
		result.Counts[d.Decision]++
	}
	return result, nil
}

// judgeBatch judges rows with bounded concurrency. A row-level failure
// becomes an ERROR decision; only cancellation fails the batch.
func (v *Verifier) judgeBatch(ctx context.Context, work []pending, concurrency int) ([]RowDecision, error) {
	rows := make([]RowDecision, len(work))
	logger := observability.OrNop(v.Logger)

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, item := range work {
		g.Go(func() error {
			rows[i] = v.judgeRow(ctx, item, logger)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (v *Verifier) judgeRow(ctx context.Context, item pending, logger observability.Logger) RowDecision {
	var judgment *ailink.Judgment
	attempts, err := v.Retry.Do(ctx, func(ctx context.Context) error {
		j, err := v.Judge.Judge(ctx, ailink.JudgeRequest{QueryName: item.queryName, DictName: item.dictName})
		if err == nil && j == nil {
			err = errors.New("judgment service returned no verdict")
		}
		metrics.RecordJudgeAttempt(err == nil)
		if err != nil {
			return err
		}
		judgment = j
		return nil
	})

	row := RowDecision{RowID: item.rowID}
	if err != nil {
		row.Decision = ailink.DecisionError
		row.Reason = err.Error()
		logger.Warn("Judgment failed",
			zap.Int("row_id", item.rowID),
			zap.Int("attempts", attempts),
			zap.String("code", ailink.ErrorCode(err)),
			zap.Error(err),
		)
	} else {
		row.Decision = judgment.Decision
		row.Reason = judgment.Reason
	}
	metrics.RecordDecision(string(row.Decision))
	return row
}

func (v *Verifier) options() Options {
	opts := v.Options
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = min(DefaultConcurrency, runtime.NumCPU())
	}
	if opts.ExcludeMatchTypes == nil {
		opts.ExcludeMatchTypes = DefaultOptions().ExcludeMatchTypes
	}
	return opts
}

// merge copies table and writes the decision columns, replacing them when
// the input already carries them.
func merge(table *core.Table, decisions map[int]RowDecision) *core.Table {
	header := append([]string(nil), table.Header...)
	colIndex := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		header = append(header, name)
		return len(header) - 1
	}
	decisionCol := colIndex(ColumnDecision)
	reasonCol := colIndex(ColumnReason)
	incorrectCol := colIndex(ColumnIncorrect)

	out := &core.Table{Header: header, Rows: make([][]string, 0, len(table.Rows))}
	for i, src := range table.Rows {
		row := make([]string, len(header))
		copy(row, src)
		row[decisionCol], row[reasonCol], row[incorrectCol] = "", "", ""
		if d, ok := decisions[i]; ok {
			row[decisionCol] = string(d.Decision)
			row[reasonCol] = d.Reason
			row[incorrectCol] = incorrectFlag(d.Decision)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func incorrectFlag(d ailink.Decision) string {
	switch d {
	case ailink.DecisionIncorrect:
		return "1"
	case ailink.DecisionCorrect:
		return "0"
	default:
		return ""
	}
}
