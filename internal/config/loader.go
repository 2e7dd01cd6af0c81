// Package config provides centralized configuration management for orgmatch.
// Defaults are registered on a viper instance, a YAML config file may
// replace them, and ORGMATCH_* environment variables (parsed with
// gofulmen/config) win over both.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the binary and its XDG directories.
	AppName = "orgmatch"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ORGMATCH_"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex

	validate = validator.New()
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 32<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Cache defaults
	v.SetDefault("cache.judgment_ttl", "168h")

	// Match defaults
	v.SetDefault("match.similarity_threshold", 0.9)
	v.SetDefault("match.blocking_threshold", 0.5)
	v.SetDefault("match.rarity_threshold", 0.6)
	v.SetDefault("match.ngram_size", 3)
	v.SetDefault("match.minhash_permutations", 128)
	v.SetDefault("match.token_search_limit", 25)
	v.SetDefault("match.rarity_min_token_length", 5)
	v.SetDefault("match.rarity_stopword_quantile", 0.8)
	v.SetDefault("match.workers", 4)
	v.SetDefault("match.token_index", "store")

	// Verify defaults
	v.SetDefault("verify.batch_size", 100)
	v.SetDefault("verify.concurrency", 4)
	v.SetDefault("verify.max_attempts", 3)
	v.SetDefault("verify.initial_backoff", "1s")
	v.SetDefault("verify.max_backoff", "20s")
	v.SetDefault("verify.checkpoint_dir", "")
	v.SetDefault("verify.checkpoint_stem", "verify")
	v.SetDefault("verify.exclude_match_types", []string{"Perfect", "Manual"})

	// AILink defaults (credentials come from the environment)
	v.SetDefault("ailink.base_url", "")
	v.SetDefault("ailink.api_key", "")
	v.SetDefault("ailink.model", "")
	v.SetDefault("ailink.api_version", "")
	v.SetDefault("ailink.timeout", "60s")
	v.SetDefault("ailink.prompt_slug", "org-match-verify")
	v.SetDefault("ailink.prompts_dir", "")
	v.SetDefault("ailink.debug.capture_raw_enabled", false)
	v.SetDefault("ailink.debug.capture_raw_max_bytes", 4096)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)
}

// Load resolves the configuration held by v, applies environment and
// runtime overrides, and validates the result.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		v = viper.New()
		SetDefaults(v)
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if err := v.MergeConfigMap(envOverrides); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	for _, overrides := range runtimeOverrides {
		if len(overrides) == 0 {
			continue
		}
		if err := v.MergeConfigMap(overrides); err != nil {
			return nil, fmt.Errorf("failed to apply runtime overrides: %w", err)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if strings.TrimSpace(cfg.Verify.CheckpointDir) == "" {
		cfg.Verify.CheckpointDir = DefaultCheckpointDir()
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	setConfig(cfg)
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps ORGMATCH_{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	prefix := EnvPrefix

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		{Name: prefix + "CACHE_JUDGMENT_TTL", Path: []string{"cache", "judgment_ttl"}, Type: EnvString},

		// Float fields are parsed as strings and converted by the decode hook
		{Name: prefix + "MATCH_SIMILARITY_THRESHOLD", Path: []string{"match", "similarity_threshold"}, Type: EnvString},
		{Name: prefix + "MATCH_BLOCKING_THRESHOLD", Path: []string{"match", "blocking_threshold"}, Type: EnvString},
		{Name: prefix + "MATCH_RARITY_THRESHOLD", Path: []string{"match", "rarity_threshold"}, Type: EnvString},
		{Name: prefix + "MATCH_WORKERS", Path: []string{"match", "workers"}, Type: EnvInt},
		{Name: prefix + "MATCH_TOKEN_INDEX", Path: []string{"match", "token_index"}, Type: EnvString},

		{Name: prefix + "VERIFY_BATCH_SIZE", Path: []string{"verify", "batch_size"}, Type: EnvInt},
		{Name: prefix + "VERIFY_CONCURRENCY", Path: []string{"verify", "concurrency"}, Type: EnvInt},
		{Name: prefix + "VERIFY_MAX_ATTEMPTS", Path: []string{"verify", "max_attempts"}, Type: EnvInt},
		{Name: prefix + "VERIFY_CHECKPOINT_DIR", Path: []string{"verify", "checkpoint_dir"}, Type: EnvString},

		// AILink credentials
		{Name: prefix + "AILINK_BASE_URL", Path: []string{"ailink", "base_url"}, Type: EnvString},
		{Name: prefix + "AILINK_API_KEY", Path: []string{"ailink", "api_key"}, Type: EnvString},
		{Name: prefix + "AILINK_MODEL", Path: []string{"ailink", "model"}, Type: EnvString},
		{Name: prefix + "AILINK_API_VERSION", Path: []string{"ailink", "api_version"}, Type: EnvString},
		{Name: prefix + "AILINK_TIMEOUT", Path: []string{"ailink", "timeout"}, Type: EnvString},
		{Name: prefix + "AILINK_PROMPTS_DIR", Path: []string{"ailink", "prompts_dir"}, Type: EnvString},
		{Name: prefix + "AILINK_DEBUG_CAPTURE_RAW_ENABLED", Path: []string{"ailink", "debug", "capture_raw_enabled"}, Type: EnvBool},
		{Name: prefix + "AILINK_DEBUG_CAPTURE_RAW_MAX_BYTES", Path: []string{"ailink", "debug", "capture_raw_max_bytes"}, Type: EnvInt},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

// DefaultCheckpointDir returns the directory verification checkpoints go
// to when none is configured.
func DefaultCheckpointDir() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return filepath.Join(".", "checkpoints")
	}
	return filepath.Join(dataDir, "checkpoints")
}
