package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/config"
	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the system and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := observability.CLILogger

		log.Info("=== " + config.AppName + " doctor ===")
		log.Info("")
		log.Info("Running diagnostic checks...")
		log.Info("")

		allChecks := true
		totalChecks := 7

		// Check 1: Go version
		goVersion := runtime.Version()
		log.Info(fmt.Sprintf("[1/%d] Checking Go runtime... ✅ %s %s/%s", totalChecks, goVersion, runtime.GOOS, runtime.GOARCH),
			zap.String("go_version", goVersion))

		// Check 2: Gofulmen and Crucible
		version := crucible.GetVersion()
		if version.Gofulmen != "" {
			log.Info(fmt.Sprintf("[2/%d] Checking Gofulmen... ✅ v%s (crucible v%s)", totalChecks, version.Gofulmen, version.Crucible),
				zap.String("gofulmen_version", version.Gofulmen),
				zap.String("crucible_version", version.Crucible))
		} else {
			log.Warn(fmt.Sprintf("[2/%d] Checking Gofulmen... ⚠️  version unavailable", totalChecks))
			allChecks = false
		}

		// Check 3: Config file
		configPath := config.DefaultConfigPath()
		switch {
		case configPath == "":
			log.Warn(fmt.Sprintf("[3/%d] Checking config directory... ⚠️  cannot resolve config directory", totalChecks))
			allChecks = false
		case fileExists(configPath):
			log.Info(fmt.Sprintf("[3/%d] Checking config file... ✅ %s", totalChecks, configPath), zap.String("config_path", configPath))
		default:
			log.Info(fmt.Sprintf("[3/%d] Checking config file... ✅ none (defaults and environment)", totalChecks), zap.String("config_path", configPath))
		}

		// Check 4: Effective configuration
		cfg, cfgErr := loadConfig(nil)
		if cfgErr != nil {
			log.Warn(fmt.Sprintf("[4/%d] Checking configuration... ⚠️  invalid", totalChecks), zap.Error(cfgErr))
			log.Warn("Remaining checks skipped")
			return
		}
		log.Info(fmt.Sprintf("[4/%d] Checking configuration... ✅ thresholds %.2f/%.2f/%.2f", totalChecks,
			cfg.Match.Similarity, cfg.Match.Blocking, cfg.Match.Rarity))

		// Check 5: Store and full-text index
		if err := probeStore(ctx, cfg); err != nil {
			log.Warn(fmt.Sprintf("[5/%d] Checking store... ⚠️  %v", totalChecks, err), zap.Error(err))
			if cfg.Match.TokenIndex == "store" {
				log.Info("       Set match.token_index: memory to match without the store.")
			}
			allChecks = false
		} else {
			log.Info(fmt.Sprintf("[5/%d] Checking store... ✅ %s", totalChecks, describeStore(cfg.Store)))
		}

		// Check 6: Checkpoint directory
		if err := probeWritableDir(cfg.Verify.CheckpointDir); err != nil {
			log.Warn(fmt.Sprintf("[6/%d] Checking checkpoint directory... ⚠️  %s not writable", totalChecks, cfg.Verify.CheckpointDir), zap.Error(err))
			allChecks = false
		} else {
			log.Info(fmt.Sprintf("[6/%d] Checking checkpoint directory... ✅ %s", totalChecks, cfg.Verify.CheckpointDir))
		}

		// Check 7: Judgment service credentials
		if err := cfg.AILink.Validate(); err != nil {
			log.Warn(fmt.Sprintf("[7/%d] Checking judge credentials... ⚠️  %v", totalChecks, err))
			log.Info("       'verify' needs " + config.EnvPrefix + "AILINK_BASE_URL, " + config.EnvPrefix + "AILINK_API_KEY and " + config.EnvPrefix + "AILINK_MODEL.")
		} else {
			log.Info(fmt.Sprintf("[7/%d] Checking judge credentials... ✅ %s at %s (key %s)", totalChecks,
				cfg.AILink.Model, cfg.AILink.BaseURL, maskKey(cfg.AILink.APIKey)))
		}

		log.Info("")
		if allChecks {
			log.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", config.AppName))
		} else {
			log.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		log.Info("")
		log.Info("=== End Diagnostics ===")
	},
}

// probeStore opens the store and round-trips a one-entry token index, which
// fails when the libsql build lacks FTS5.
func probeStore(ctx context.Context, cfg *config.Config) error {
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	index, err := db.BuildTokenIndex(ctx, []core.NameRecord{{ID: "probe", NormalizedName: "doctor probe"}})
	if err != nil {
		return err
	}
	defer index.Close() //nolint:errcheck

	hits, err := index.Search(ctx, []string{"probe"}, 1)
	if err != nil {
		return err
	}
	if len(hits) != 1 {
		return fmt.Errorf("token index returned %d hits for probe", len(hits))
	}
	return nil
}

func probeWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	file, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := file.Name()
	_ = file.Close()
	return os.Remove(name)
}

func describeStore(cfg config.StoreConfig) string {
	if strings.TrimSpace(cfg.URL) != "" {
		return cfg.URL + " (remote)"
	}
	absPath, _ := filepath.Abs(cfg.Path)
	if info, err := os.Stat(absPath); err == nil {
		return fmt.Sprintf("%s (%s)", absPath, formatFileSize(info.Size()))
	}
	return absPath
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.CLILogger
		configPath := config.DefaultConfigPath()
		dataDir := config.DefaultDataDir()

		log.Info("Configuration:")
		log.Info(fmt.Sprintf("  Config file:    %s (%s)", configPath, existenceStatus(fileExists(configPath))))
		if dataDir != "" {
			log.Info(fmt.Sprintf("  Data directory: %s (%s)", dataDir, existenceStatus(fileExists(dataDir))))
		} else {
			log.Info("  Data directory: (not resolved)")
		}

		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		log.Info("  Database:       " + describeStore(cfg.Store))
		log.Info("  Checkpoints:    " + cfg.Verify.CheckpointDir)

		log.Info("")
		log.Info("Environment:")
		for _, name := range []string{"AILINK_BASE_URL", "AILINK_API_KEY", "AILINK_MODEL", "AILINK_API_VERSION"} {
			log.Info(fmt.Sprintf("  %s%s: %s", config.EnvPrefix, name, envStatus(config.EnvPrefix+name)))
		}

		log.Info("")
		log.Info("Effective Settings:")
		log.Info(fmt.Sprintf("  match.similarity_threshold: %.2f", cfg.Match.Similarity))
		log.Info(fmt.Sprintf("  match.blocking_threshold:   %.2f", cfg.Match.Blocking))
		log.Info(fmt.Sprintf("  match.rarity_threshold:     %.2f", cfg.Match.Rarity))
		log.Info("  match.token_index:          " + cfg.Match.TokenIndex)
		log.Info(fmt.Sprintf("  verify.batch_size:          %d", cfg.Verify.BatchSize))
		log.Info(fmt.Sprintf("  verify.concurrency:         %d", cfg.Verify.Concurrency))
		log.Info("  verify.exclude_match_types: " + strings.Join(cfg.Verify.ExcludeMatchTypes, ", "))
		log.Info(fmt.Sprintf("  cache.judgment_ttl:         %s", cfg.Cache.JudgmentTTL))
		return nil
	},
}

var doctorPurgeCmd = &cobra.Command{
	Use:   "purge-cache",
	Short: "Delete expired cached judgments",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		purged, err := db.PurgeExpiredJudgments(cmd.Context())
		if err != nil {
			return err
		}
		observability.CLILogger.Info(fmt.Sprintf("Purged %d expired judgments", purged), zap.Int64("purged", purged))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorPurgeCmd)
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}

func maskKey(apiKey string) string {
	trimmed := strings.TrimSpace(apiKey)
	if len(trimmed) <= 8 {
		return "****"
	}
	return trimmed[:4] + "…" + trimmed[len(trimmed)-4:]
}
