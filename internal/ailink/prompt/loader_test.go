package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.NotEmpty(t, prompts)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)

	prompt, err := reg.Get("org-match-verify")
	require.NoError(t, err)
	require.NotEmpty(t, prompt.Config.SystemTemplate)
	require.Equal(t, []string{"query_name", "dict_name"}, prompt.Config.Input.RequiredVariables)
	require.Equal(t, "object", prompt.Config.ResponseSchema["type"])
	require.NotNil(t, prompt.Config.Temperature)
	require.NotNil(t, prompt.Config.MaxTokens)
	require.Equal(t, 200, *prompt.Config.MaxTokens)
}

func TestRender(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	prompt, err := reg.Get("org-match-verify")
	require.NoError(t, err)

	system, user, err := prompt.Render(map[string]string{"query_name": "Müller AG", "dict_name": "Mueller GmbH"})
	require.NoError(t, err)
	require.Contains(t, system, "CORRECT")
	require.Equal(t, "Name A: Müller AG\nName B: Mueller GmbH", user)

	_, _, err = prompt.Render(map[string]string{"query_name": "Müller AG"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "dict_name")
}

func TestLoadRejectsInvalidPrompts(t *testing.T) {
	_, err := Load("empty.md", []byte("   "))
	require.Error(t, err)

	_, err = Load("nosystem.md", []byte("---\nslug: nosystem\n---\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "system_template")

	_, err = Load("badslug.md", []byte("---\nslug: Bad Slug\n---\nbody"))
	require.Error(t, err)

	_, err = Load("open.md", []byte("---\nslug: open\nbody"))
	require.ErrorContains(t, err, "unterminated frontmatter")

	_, err = Load("zero.md", []byte("---\nslug: zero\nmax_tokens: 0\n---\nbody"))
	require.Error(t, err)
}

func TestLoadFromDirReadsYAMLPrompts(t *testing.T) {
	dir := t.TempDir()
	yamlPrompt := "slug: plain-yaml\nsystem_template: Compare {{query_name}} with {{dict_name}}.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(yamlPrompt), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\nslug: body-prompt\n---\nBody --- with dashes."), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	prompts, err := LoadFromDir(dir)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	require.Equal(t, "body-prompt", prompts[0].Config.Slug)
	require.Equal(t, "Body --- with dashes.", prompts[0].Config.SystemTemplate)
	require.Equal(t, "plain-yaml", prompts[1].Config.Slug)
	require.Equal(t, "Compare {{query_name}} with {{dict_name}}.", prompts[1].Config.SystemTemplate)
}

func TestLoadRegistryOverridesBySlug(t *testing.T) {
	dir := t.TempDir()
	override := "---\nslug: org-match-verify\ninput:\n  required_variables: [query_name, dict_name]\nuser_template: \"{{query_name}} vs {{dict_name}}\"\n---\nCustom system prompt."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "verify.md"), []byte(override), 0o600))
	extra := "---\nslug: extra-check\n---\nAnother prompt."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.md"), []byte(extra), 0o600))

	reg, err := LoadRegistry(dir)
	require.NoError(t, err)
	require.Len(t, reg.List(), 2)

	prompt, err := reg.Get("org-match-verify")
	require.NoError(t, err)
	require.Equal(t, "Custom system prompt.", prompt.Config.SystemTemplate)

	_, user, err := prompt.Render(map[string]string{"query_name": "A", "dict_name": "B"})
	require.NoError(t, err)
	require.Equal(t, "A vs B", user)
}

func TestRegistryRejectsDuplicatesButAllowsOverrides(t *testing.T) {
	a := &Prompt{Config: Config{Slug: "same", SystemTemplate: "a"}}
	b := &Prompt{Config: Config{Slug: "same", SystemTemplate: "b"}}

	_, err := NewRegistry([]*Prompt{a, b})
	require.ErrorContains(t, err, "duplicate prompt slug")

	reg, err := NewRegistry([]*Prompt{a})
	require.NoError(t, err)
	merged, err := reg.With([]*Prompt{b})
	require.NoError(t, err)

	got, err := merged.Get("same")
	require.NoError(t, err)
	require.Equal(t, "b", got.Config.SystemTemplate)
	original, err := reg.Get("same")
	require.NoError(t, err)
	require.Equal(t, "a", original.Config.SystemTemplate)

	_, err = merged.Get("missing")
	require.ErrorContains(t, err, "available: same")

	_, err = reg.With([]*Prompt{{Source: "blank.md"}})
	require.ErrorContains(t, err, "blank.md missing slug")
}
