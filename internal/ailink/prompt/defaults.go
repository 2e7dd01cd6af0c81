package prompt

import (
	"embed"
	"strings"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	return loadFS(defaultPromptsFS, "prompts", func(name string) string { return "embedded:" + name })
}

// DefaultRegistry builds a registry from embedded prompts.
func DefaultRegistry() (*InMemoryRegistry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}
	return NewRegistry(prompts)
}

// LoadRegistry builds a registry from the embedded prompts, replacing any
// whose slug is redefined in dir. An empty dir yields the defaults.
func LoadRegistry(dir string) (Registry, error) {
	defaults, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return defaults, nil
	}

	overrides, err := LoadFromDir(dir)
	if err != nil {
		return nil, err
	}
	merged, err := defaults.With(overrides)
	if err != nil {
		return nil, err
	}
	return merged, nil
}
