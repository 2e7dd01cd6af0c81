// Package prompt loads verification prompts: YAML frontmatter describing
// variables, sampling settings and the response schema, followed by the
// system prompt body.
package prompt

// Config is the frontmatter of a prompt file.
type Config struct {
	Slug           string         `yaml:"slug" json:"slug"`
	Name           string         `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string         `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string         `yaml:"version,omitempty" json:"version,omitempty"`
	Updated        string         `yaml:"updated,omitempty" json:"updated,omitempty"`
	Input          InputSpec      `yaml:"input,omitempty" json:"input,omitempty"`
	SystemTemplate string         `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	UserTemplate   string         `yaml:"user_template,omitempty" json:"user_template,omitempty"`
	Temperature    *float64       `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens      *int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	ResponseSchema map[string]any `yaml:"response_schema,omitempty" json:"response_schema,omitempty"`
}

// InputSpec names the template variables. Required ones must be non-empty
// at render time.
type InputSpec struct {
	RequiredVariables []string `yaml:"required_variables,omitempty" json:"required_variables,omitempty"`
	OptionalVariables []string `yaml:"optional_variables,omitempty" json:"optional_variables,omitempty"`
}

// Prompt is a validated prompt and the file or embedded name it came from.
type Prompt struct {
	Config Config
	Source string
}
