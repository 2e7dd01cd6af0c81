package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/config"
	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/core/engine"
	"github.com/namelens/orgmatch/internal/metrics"
	"github.com/namelens/orgmatch/internal/observability"
	"github.com/namelens/orgmatch/internal/output"
)

type matchInput struct {
	QueryPath string
	DictPath  string
	Columns   core.Columns
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match query names against a dictionary",
	Long: `Match every row of the query table to at most one row of the dictionary.

Both inputs are CSV files with a header row. The result is a CSV table with
query_id, dict_id and match_type columns, written to --out or stdout. A
summary of matches per stage is written to stderr.`,
	Example: `  orgmatch match --query grants.csv --dict registry.csv \
    --query-name applicant --dict-name legal_name --out matches.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(matchOverrides(cmd))
		if err != nil {
			fail("Invalid configuration", err)
		}

		input, err := matchInputFromFlags(cmd)
		if err != nil {
			return err
		}

		table, results, queries, err := runMatch(ctx, cfg, input)
		if err != nil {
			fail("Matching failed", err)
		}

		outPath, _ := cmd.Flags().GetString("out")
		if err := writeTable(outPath, table); err != nil {
			return err
		}

		summary := output.SummarizeMatches(queries, results)
		return writeSummary(cmd, func(f output.Formatter) (string, error) {
			return f.FormatMatchSummary(summary)
		})
	},
}

// runMatch loads both tables and runs the cascade over them.
func runMatch(ctx context.Context, cfg *config.Config, input matchInput) (*core.Table, []core.MatchResult, int, error) {
	query, err := readTable(input.QueryPath)
	if err != nil {
		return nil, nil, 0, err
	}
	dictionary, err := readTable(input.DictPath)
	if err != nil {
		return nil, nil, 0, err
	}

	index, closeIndex, err := tokenIndex(ctx, cfg)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("open token index: %w", err)
	}
	defer closeIndex()

	logger := observability.OrNop(observability.CLILogger)
	logger.Info("Matching",
		zap.Int("queries", query.Len()),
		zap.Int("dictionary", dictionary.Len()),
		zap.String("columns", input.Columns.String()),
		zap.String("token_index", cfg.Match.TokenIndex))

	start := time.Now()
	cascade := engine.NewCascade(cfg.Match.Options(), index, logger)
	table, results, err := cascade.MatchTables(ctx, query, dictionary, input.Columns)
	metrics.RecordRun("match", err == nil, time.Since(start))
	if err != nil {
		return nil, nil, 0, err
	}

	logger.Info("Matching complete",
		zap.Int("matched", len(results)),
		zap.Duration("duration", time.Since(start)))
	return table, results, query.Len(), nil
}

func matchInputFromFlags(cmd *cobra.Command) (matchInput, error) {
	flags := cmd.Flags()
	queryPath, _ := flags.GetString("query")
	dictPath, _ := flags.GetString("dict")
	if strings.TrimSpace(queryPath) == "" || strings.TrimSpace(dictPath) == "" {
		return matchInput{}, fmt.Errorf("--query and --dict are required")
	}

	var cols core.Columns
	cols.QueryID, _ = flags.GetString("query-id")
	cols.QueryName, _ = flags.GetString("query-name")
	cols.DictID, _ = flags.GetString("dict-id")
	cols.DictName, _ = flags.GetString("dict-name")

	return matchInput{QueryPath: queryPath, DictPath: dictPath, Columns: cols}, nil
}

// matchOverrides turns explicitly set flags into config overrides.
func matchOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	flags := cmd.Flags()
	for flag, key := range map[string]string{
		"similarity": "similarity_threshold",
		"blocking":   "blocking_threshold",
		"rarity":     "rarity_threshold",
	} {
		if flags.Changed(flag) {
			value, _ := flags.GetFloat64(flag)
			setOverride(overrides, "match", key, value)
		}
	}
	if flags.Changed("workers") {
		value, _ := flags.GetInt("workers")
		setOverride(overrides, "match", "workers", value)
	}
	if flags.Changed("token-index") {
		value, _ := flags.GetString("token-index")
		setOverride(overrides, "match", "token_index", value)
	}
	return overrides
}

// setOverride places value at section.key in a nested viper config map.
func setOverride(overrides map[string]any, section, key string, value any) {
	nested, ok := overrides[section].(map[string]any)
	if !ok {
		nested = map[string]any{}
		overrides[section] = nested
	}
	nested[key] = value
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("query", "", "query table (CSV)")
	matchCmd.Flags().String("dict", "", "dictionary table (CSV)")
	matchCmd.Flags().String("query-id", "id", "query id column")
	matchCmd.Flags().String("query-name", "name", "query name column")
	matchCmd.Flags().String("dict-id", "id", "dictionary id column")
	matchCmd.Flags().String("dict-name", "name", "dictionary name column")
	matchCmd.Flags().Float64("similarity", core.DefaultThresholds().Similarity, "minimum Jaro-Winkler similarity")
	matchCmd.Flags().Float64("blocking", core.DefaultThresholds().Blocking, "minimum n-gram Jaccard similarity for blocking")
	matchCmd.Flags().Float64("rarity", core.DefaultThresholds().Rarity, "minimum rarity score")
	matchCmd.Flags().Int("workers", 0, "blocked stage workers (0 uses config)")
	matchCmd.Flags().String("token-index", "", "token index: store or memory")
	matchCmd.Flags().StringP("out", "o", "", "write matches to file (default stdout)")
	addSummaryFlags(matchCmd)
}
