// Package driver defines the provider contract the judgment service calls
// through, plus shared provider errors and request tracing.
package driver

import (
	"context"

	"github.com/namelens/orgmatch/internal/ailink/content"
)

// Driver sends one completion request to a provider.
type Driver interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name identifies the provider in traces and logs.
	Name() string
	Capabilities() Capabilities
}

// Capabilities describes optional provider features.
type Capabilities struct {
	// SupportsJSONSchema is set when the provider enforces a response
	// schema; others get plain JSON mode.
	SupportsJSONSchema bool
}

// ResponseFormat is "json_object" or "json_schema".
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema is a structured output schema.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is one judgment call. PromptSlug is carried into traces only.
type Request struct {
	Model          string
	Messages       []content.Message
	ResponseFormat *ResponseFormat
	Temperature    *float64
	MaxTokens      *int
	PromptSlug     string
}

// Response is the provider reply. Refusal is set instead of Content when
// the model declines to answer.
type Response struct {
	Content      []content.ContentBlock
	Refusal      string
	FinishReason string
	Usage        *Usage
}
