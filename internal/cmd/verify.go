package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/ailink"
	"github.com/namelens/orgmatch/internal/config"
	"github.com/namelens/orgmatch/internal/metrics"
	"github.com/namelens/orgmatch/internal/observability"
	"github.com/namelens/orgmatch/internal/output"
	"github.com/namelens/orgmatch/internal/verify"
)

type verifyInput struct {
	Path    string
	Columns verify.Columns
	NoCache bool
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Ask the LLM judge to confirm fuzzy matches",
	Long: `Verify fuzzy matches with an LLM judge.

The input is a CSV table holding the query name, the dictionary name, and the
dict_id and match_type columns produced by 'match'. Rows are judged in batches;
each finished batch is checkpointed, so an interrupted run resumes at the first
unfinished batch when invoked again with the same checkpoint directory.

Credentials come from ORGMATCH_AILINK_BASE_URL, ORGMATCH_AILINK_API_KEY and
ORGMATCH_AILINK_MODEL.`,
	Example: `  orgmatch verify --input joined.csv --query-name applicant \
    --dict-name legal_name --out verified.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(verifyOverrides(cmd))
		if err != nil {
			fail("Invalid configuration", err)
		}

		input, err := verifyInputFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx, stop := interruptible(cmd.Context())
		defer stop()

		result, err := runVerify(ctx, cfg, input)
		if err != nil {
			fail("Verification failed", err)
		}

		outPath, _ := cmd.Flags().GetString("out")
		if err := writeTable(outPath, result.Table); err != nil {
			return err
		}

		summary := output.SummarizeVerification(result)
		return writeSummary(cmd, func(f output.Formatter) (string, error) {
			return f.FormatVerifySummary(summary)
		})
	},
}

// runVerify checks credentials, loads the table, and runs the verifier.
func runVerify(ctx context.Context, cfg *config.Config, input verifyInput) (*verify.Result, error) {
	if err := cfg.AILink.Validate(); err != nil {
		return nil, err
	}

	logger := observability.OrNop(observability.CLILogger)

	checkpoints, err := verify.NewCheckpoints(cfg.Verify.CheckpointDir, cfg.Verify.CheckpointStem)
	if err != nil {
		return nil, err
	}

	var (
		cache ailink.Cache
		ttl   time.Duration
	)
	if !input.NoCache && cfg.Cache.JudgmentTTL > 0 {
		db, err := openStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open judgment cache: %w", err)
		}
		defer db.Close() //nolint:errcheck
		if purged, err := db.PurgeExpiredJudgments(ctx); err != nil {
			logger.Warn("Failed to purge expired judgments", zap.Error(err))
		} else if purged > 0 {
			logger.Debug("Purged expired judgments", zap.Int64("count", purged))
		}
		cache, ttl = db, cfg.Cache.JudgmentTTL
	}

	verifier, err := verify.New(cfg.AILink, checkpoints, cfg.Verify.Options(), cache, ttl, logger)
	if err != nil {
		return nil, err
	}
	verifier.Retry = cfg.Verify.RetryPolicy()

	table, err := readTable(input.Path)
	if err != nil {
		return nil, err
	}

	logger.Info("Verifying",
		zap.String("input", input.Path),
		zap.Int("rows", table.Len()),
		zap.String("checkpoints", checkpoints.Dir),
		zap.Bool("cache", cache != nil))
	start := time.Now()
	result, err := verifier.Run(ctx, table, input.Columns)
	metrics.RecordRun("verify", err == nil, time.Since(start))
	return result, err
}

// interruptible returns a context cancelled on SIGINT/SIGTERM. The shutdown
// handler waits for stop so the current batch can unwind without writing a
// partial checkpoint.
func interruptible(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	signals.OnShutdown(func(shutdownCtx context.Context) error {
		observability.CLILogger.Warn("Interrupted; finished batches are checkpointed")
		cancel()
		select {
		case <-done:
		case <-shutdownCtx.Done():
		}
		return nil
	})

	go func() {
		if err := signals.Listen(ctx); err != nil && ctx.Err() == nil {
			observability.CLILogger.Warn("Signal handler error", zap.Error(err))
		}
	}()

	return ctx, func() {
		close(done)
		cancel()
	}
}

func verifyInputFromFlags(cmd *cobra.Command) (verifyInput, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("input")
	if strings.TrimSpace(path) == "" {
		return verifyInput{}, fmt.Errorf("--input is required")
	}

	queryName, _ := flags.GetString("query-name")
	dictName, _ := flags.GetString("dict-name")
	cols := verify.DefaultColumns(queryName, dictName)
	cols.DictID, _ = flags.GetString("dict-id")
	cols.MatchType, _ = flags.GetString("match-type")

	noCache, _ := flags.GetBool("no-cache")
	return verifyInput{Path: path, Columns: cols, NoCache: noCache}, nil
}

func verifyOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	flags := cmd.Flags()
	for flag, key := range map[string]string{
		"batch-size":   "batch_size",
		"concurrency":  "concurrency",
		"max-attempts": "max_attempts",
	} {
		if flags.Changed(flag) {
			value, _ := flags.GetInt(flag)
			setOverride(overrides, "verify", key, value)
		}
	}
	for flag, key := range map[string]string{
		"checkpoint-dir":  "checkpoint_dir",
		"checkpoint-stem": "checkpoint_stem",
	} {
		if flags.Changed(flag) {
			value, _ := flags.GetString(flag)
			setOverride(overrides, "verify", key, value)
		}
	}
	if flags.Changed("exclude") {
		value, _ := flags.GetStringSlice("exclude")
		setOverride(overrides, "verify", "exclude_match_types", value)
	}
	return overrides
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("input", "", "matched table to verify (CSV)")
	verifyCmd.Flags().String("query-name", "query_name", "query name column")
	verifyCmd.Flags().String("dict-name", "dict_name", "dictionary name column")
	verifyCmd.Flags().String("dict-id", "dict_id", "matched dictionary id column")
	verifyCmd.Flags().String("match-type", "match_type", "match type column")
	verifyCmd.Flags().Int("batch-size", verify.DefaultBatchSize, "rows per checkpointed batch")
	verifyCmd.Flags().Int("concurrency", verify.DefaultConcurrency, "concurrent judge calls within a batch")
	verifyCmd.Flags().Int("max-attempts", verify.DefaultMaxAttempts, "judge attempts per row")
	verifyCmd.Flags().String("checkpoint-dir", "", "checkpoint directory (default in the data dir)")
	verifyCmd.Flags().String("checkpoint-stem", verify.DefaultCheckpointStem, "checkpoint file name prefix")
	verifyCmd.Flags().StringSlice("exclude", []string{"Perfect", "Manual"}, "match types never sent for review")
	verifyCmd.Flags().Bool("no-cache", false, "bypass the judgment cache")
	verifyCmd.Flags().StringP("out", "o", "", "write the verified table to file (default stdout)")
	addSummaryFlags(verifyCmd)
}
