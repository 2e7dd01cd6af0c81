package ailink

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/ailink/driver"
	"github.com/namelens/orgmatch/internal/ailink/prompt"
)

func TestResponseFormatUsesJSONSchemaWhenSupported(t *testing.T) {
	def := &prompt.Prompt{Config: prompt.Config{Slug: "org-match-verify", ResponseSchema: map[string]any{"type": "object"}}}

	format := responseFormatFor(&scriptedDriver{schema: true}, def)
	require.Equal(t, "json_schema", format.Type)
	require.NotNil(t, format.JSONSchema)
	require.Equal(t, "org_match_verify", format.JSONSchema.Name)
	require.True(t, format.JSONSchema.Strict)
	require.Equal(t, map[string]any{"type": "object"}, format.JSONSchema.Schema)

	format = responseFormatFor(&scriptedDriver{}, def)
	require.Equal(t, "json_object", format.Type)
	require.Nil(t, format.JSONSchema)

	format = responseFormatFor(&scriptedDriver{schema: true}, &prompt.Prompt{Config: prompt.Config{Slug: "no-schema"}})
	require.Equal(t, "json_object", format.Type)
}

func TestSchemaName(t *testing.T) {
	require.Equal(t, "org_match_verify_v2", schemaName("org-match-verify.v2"))
	require.Equal(t, "orgmatch_judgment", schemaName("---"))
	require.Len(t, schemaName(strings.Repeat("a", 100)), maxSchemaNameLength)
}

func TestFallbackToJSONObjectResetsSchema(t *testing.T) {
	req := &driver.Request{ResponseFormat: &driver.ResponseFormat{Type: "json_schema", JSONSchema: &driver.JSONSchema{Name: "x", Strict: true}}}
	fallbackToJSONObject(req)
	require.Equal(t, "json_object", req.ResponseFormat.Type)
	require.Nil(t, req.ResponseFormat.JSONSchema)
}

func TestIsUnsupportedSchemaError(t *testing.T) {
	require.True(t, isUnsupportedSchemaError(&driver.ProviderError{StatusCode: 400, Message: "Invalid parameter: response_format"}))
	require.False(t, isUnsupportedSchemaError(&driver.ProviderError{StatusCode: 500, Message: "response_format"}))
	require.False(t, isUnsupportedSchemaError(errors.New("json_schema")))
}
