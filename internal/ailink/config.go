package ailink

import (
	"fmt"
	"strings"
	"time"
)

// Config defines the judgment service endpoint for AILink.
//
// Credentials are normally supplied through the environment rather than the
// config file.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`

	PromptSlug string `mapstructure:"prompt_slug"`
	// PromptsDir allows applications to override the built-in prompt set.
	PromptsDir string `mapstructure:"prompts_dir"`

	// Debug controls optional diagnostics like raw payload capture.
	Debug DebugConfig `mapstructure:"debug"`
}

type DebugConfig struct {
	CaptureRawEnabled  bool `mapstructure:"capture_raw_enabled"`
	CaptureRawMaxBytes int  `mapstructure:"capture_raw_max_bytes"`
}

// Validate reports missing credentials. The returned error wraps
// ErrMissingCredentials.
func (c Config) Validate() error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "base_url")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(c.Model) == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
