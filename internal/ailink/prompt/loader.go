package prompt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"
	"gopkg.in/yaml.v3"
)

//go:embed prompt.schema.json
var promptSchema []byte

// promptCheck validates a marshalled Config against prompt.schema.json.
var promptCheck = sync.OnceValues(func() (func([]byte) error, error) {
	v, err := schema.NewValidator(promptSchema)
	if err != nil {
		return nil, fmt.Errorf("compile prompt schema: %w", err)
	}
	return func(payload []byte) error {
		diagnostics, err := v.ValidateJSON(payload)
		if err != nil {
			return err
		}
		if len(diagnostics) > 0 {
			return fmt.Errorf("schema validation failed: %s", diagnostics[0].Message)
		}
		return nil
	}, nil
})

// promptExtensions are the file types LoadFromDir picks up. Markdown files
// carry frontmatter; YAML files set system_template directly.
var promptExtensions = map[string]bool{".md": true, ".yaml": true, ".yml": true}

// Load parses and validates one prompt. The markdown body after the
// frontmatter becomes the system template unless system_template is set.
func Load(source string, data []byte) (*Prompt, error) {
	cfg, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		cfg.SystemTemplate = strings.TrimSpace(body)
	}
	if cfg.SystemTemplate == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode prompt %s: %w", source, err)
	}
	check, err := promptCheck()
	if err != nil {
		return nil, err
	}
	if err := check(payload); err != nil {
		return nil, fmt.Errorf("validate prompt %s: %w", source, err)
	}
	return &Prompt{Config: cfg, Source: source}, nil
}

// LoadFromDir loads every prompt file in dir, in name order.
func LoadFromDir(dir string) ([]*Prompt, error) {
	return loadFS(os.DirFS(dir), ".", func(name string) string { return filepath.Join(dir, name) })
}

// loadFS loads the prompt files directly under root in fsys. source names
// each file in errors and in Prompt.Source.
func loadFS(fsys fs.FS, root string, source func(name string) string) ([]*Prompt, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	// fs.ReadDir returns entries sorted by name.
	out := make([]*Prompt, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !promptExtensions[strings.ToLower(path.Ext(e.Name()))] {
			continue
		}
		src := source(e.Name())
		data, err := fs.ReadFile(fsys, path.Join(root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", src, err)
		}
		p, err := Load(src, data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// splitFrontmatter decodes a "---" delimited YAML header and returns the
// remaining body. Input without a header is decoded as plain YAML.
func splitFrontmatter(data []byte) (Config, string, error) {
	var cfg Config
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return cfg, "", fmt.Errorf("empty prompt")
	}

	const fence = "---"
	if !bytes.HasPrefix(trimmed, []byte(fence)) {
		if err := yaml.Unmarshal(trimmed, &cfg); err != nil {
			return cfg, "", fmt.Errorf("invalid yaml: %w", err)
		}
		return cfg, "", nil
	}

	rest := bytes.TrimLeft(trimmed[len(fence):], " \t")
	rest = bytes.TrimPrefix(bytes.TrimPrefix(rest, []byte("\r")), []byte("\n"))
	header, body, found := cutFence(rest)
	if !found {
		return cfg, "", fmt.Errorf("unterminated frontmatter")
	}
	if err := yaml.Unmarshal(header, &cfg); err != nil {
		return cfg, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return cfg, string(body), nil
}

// cutFence splits at the first line consisting only of "---".
func cutFence(b []byte) (before, after []byte, found bool) {
	offset := 0
	for offset <= len(b) {
		line := b[offset:]
		end := bytes.IndexByte(line, '\n')
		if end >= 0 {
			line = line[:end]
		}
		if string(bytes.TrimSpace(line)) == "---" {
			if end < 0 {
				return b[:offset], nil, true
			}
			return b[:offset], b[offset+end+1:], true
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}
	return nil, nil, false
}
