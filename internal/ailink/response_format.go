package ailink

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/namelens/orgmatch/internal/ailink/driver"
	"github.com/namelens/orgmatch/internal/ailink/prompt"
)

const maxSchemaNameLength = 64

var schemaNameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// responseFormatFor asks for strict structured output when the driver
// enforces schemas and the prompt declares one, and for JSON mode
// otherwise.
func responseFormatFor(d driver.Driver, def *prompt.Prompt) *driver.ResponseFormat {
	if def == nil || d == nil || len(def.Config.ResponseSchema) == 0 || !d.Capabilities().SupportsJSONSchema {
		return jsonObjectFormat()
	}
	return &driver.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &driver.JSONSchema{
			Name:   schemaName(def.Config.Slug),
			Strict: true,
			Schema: def.Config.ResponseSchema,
		},
	}
}

func jsonObjectFormat() *driver.ResponseFormat {
	return &driver.ResponseFormat{Type: "json_object"}
}

// schemaName maps a prompt slug to the identifier charset providers accept.
func schemaName(slug string) string {
	name := strings.Trim(schemaNameUnsafe.ReplaceAllString(strings.TrimSpace(slug), "_"), "_")
	if name == "" {
		name = "orgmatch_judgment"
	}
	if len(name) > maxSchemaNameLength {
		name = name[:maxSchemaNameLength]
	}
	return name
}

// isUnsupportedSchemaError reports a 400 rejecting the response_format,
// which OpenAI-compatible gateways return when they lack structured output.
func isUnsupportedSchemaError(err error) bool {
	var perr *driver.ProviderError
	if !errors.As(err, &perr) || perr == nil || perr.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(perr.Message)
	return strings.Contains(msg, "json_schema") || strings.Contains(msg, "response_format")
}

func fallbackToJSONObject(req *driver.Request) {
	if req != nil && req.ResponseFormat != nil {
		req.ResponseFormat = jsonObjectFormat()
	}
}
