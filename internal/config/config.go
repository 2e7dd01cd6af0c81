package config

import (
	"time"

	"github.com/namelens/orgmatch/internal/ailink"
	"github.com/namelens/orgmatch/internal/core"
	"github.com/namelens/orgmatch/internal/core/engine"
	"github.com/namelens/orgmatch/internal/verify"
)

// Config represents the complete application configuration.
// Values resolve in order: built-in defaults, the config file,
// ORGMATCH_* environment variables, then runtime overrides.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Match   MatchConfig   `mapstructure:"match"`
	Verify  VerifyConfig  `mapstructure:"verify"`
	AILink  ailink.Config `mapstructure:"ailink"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes bounds match request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"gte=0"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// CacheConfig contains judgment cache configuration.
type CacheConfig struct {
	// JudgmentTTL of zero disables the judgment cache.
	JudgmentTTL time.Duration `mapstructure:"judgment_ttl" validate:"gte=0"`
}

// MatchConfig tunes the matching cascade.
type MatchConfig struct {
	core.Thresholds `mapstructure:",squash"`

	NGramSize              int     `mapstructure:"ngram_size" validate:"gte=1"`
	MinHashPermutations    int     `mapstructure:"minhash_permutations" validate:"gte=1"`
	TokenSearchLimit       int     `mapstructure:"token_search_limit" validate:"gte=1"`
	RarityMinTokenLength   int     `mapstructure:"rarity_min_token_length" validate:"gte=1"`
	RarityStopwordQuantile float64 `mapstructure:"rarity_stopword_quantile" validate:"gt=0,lte=1"`
	Workers                int     `mapstructure:"workers" validate:"gte=0"`
	// TokenIndex selects the token-search index: "store" for the libsql
	// FTS5 index, "memory" for the in-process index.
	TokenIndex string `mapstructure:"token_index" validate:"oneof=store memory"`
}

// Options converts the config into engine options.
func (m MatchConfig) Options() engine.Options {
	opts := engine.DefaultOptions()
	opts.Thresholds = m.Thresholds
	opts.NGramSize = m.NGramSize
	opts.Permutations = m.MinHashPermutations
	opts.TokenSearchLimit = m.TokenSearchLimit
	opts.RarityMinTokenLength = m.RarityMinTokenLength
	opts.StopwordQuantile = m.RarityStopwordQuantile
	if m.Workers > 0 {
		opts.Workers = m.Workers
	}
	return opts
}

// VerifyConfig tunes the resumable verification pass.
type VerifyConfig struct {
	BatchSize         int           `mapstructure:"batch_size" validate:"gte=1"`
	Concurrency       int           `mapstructure:"concurrency" validate:"gte=1"`
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"gte=1"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff" validate:"gte=0"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff" validate:"gte=0"`
	CheckpointDir     string        `mapstructure:"checkpoint_dir"`
	CheckpointStem    string        `mapstructure:"checkpoint_stem"`
	ExcludeMatchTypes []string      `mapstructure:"exclude_match_types"`
}

// Options converts the config into verifier options.
func (v VerifyConfig) Options() verify.Options {
	return verify.Options{
		BatchSize:         v.BatchSize,
		Concurrency:       v.Concurrency,
		ExcludeMatchTypes: append([]string{}, v.ExcludeMatchTypes...),
	}
}

// RetryPolicy builds the per-call retry policy.
func (v VerifyConfig) RetryPolicy() verify.RetryPolicy {
	policy := verify.DefaultRetryPolicy()
	policy.MaxAttempts = v.MaxAttempts
	policy.Backoff = verify.ExponentialBackoff(v.InitialBackoff, v.MaxBackoff)
	return policy
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn warning error"`

	// Profile selects the logging complexity level
	// Valid values: simple, structured
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
