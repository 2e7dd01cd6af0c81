package cmd

import (
	"errors"
	"fmt"
	"os"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/namelens/orgmatch/internal/ailink/driver"
	"github.com/namelens/orgmatch/internal/config"
	"github.com/namelens/orgmatch/internal/observability"
	"github.com/namelens/orgmatch/internal/server/handlers"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	closeTrace = func() error { return nil }

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo records build metadata for the version command and the
// /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Resolve organization names against a reference dictionary",
	Long: config.AppName + ` matches free-text organization names against a dictionary of
canonical names through a cascade of exact, blocked fuzzy, token-search and
rarity stages, then optionally asks an LLM judge to verify the fuzzy matches.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeTrace()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	_ = observability.DisableGlobalTelemetry()

	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", config.AppName))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace judge requests/responses to NDJSON file")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig starts the CLI logger, opens the judge trace file and reads
// the config file. Environment overrides are applied later by config.Load.
func initConfig() {
	if err := observability.InitCLILogger(config.AppName, verbose); err != nil {
		ExitWithCodeStderr(foundry.ExitFailure, "Failed to initialize logger", err)
	}
	startTracing()

	v := viper.GetViper()
	config.SetDefaults(v)
	if err := addConfigPaths(v); err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		observability.CLILogger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	case errors.As(err, &notFound):
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	case cfgFile != "":
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to read config file", err)
	default:
		observability.CLILogger.Warn("Error reading config file", zap.Error(err))
	}
}

func startTracing() {
	if traceFile == "" {
		return
	}
	cleanup, err := driver.EnableTracing(traceFile)
	if err != nil {
		observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		return
	}
	observability.CLILogger.Debug("Judge tracing enabled", zap.String("file", traceFile))
	closeTrace = cleanup
}

// addConfigPaths points v at --config, else the XDG app config dir (home
// dotfile when unresolvable) and ./config.
func addConfigPaths(v *viper.Viper) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return nil
	}
	if dir := gfconfig.GetAppConfigDir(config.AppName); dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		v.AddConfigPath(home)
		v.SetConfigName("." + config.AppName)
	}
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")
	return nil
}

// loadConfig resolves the effective configuration with flag overrides.
func loadConfig(overrides map[string]any) (*config.Config, error) {
	return config.Load(viper.GetViper(), overrides)
}
