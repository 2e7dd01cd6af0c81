package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/ailink/content"
	"github.com/namelens/orgmatch/internal/ailink/driver"
)

func userMessage(text string) []content.Message {
	return []content.Message{content.TextMessage(content.RoleUser, text)}
}

func TestClientRequiresAPIKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestClientRequiresModel(t *testing.T) {
	client := NewClient("", "test-key")
	_, err := client.Complete(context.Background(), &driver.Request{Messages: userMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}

func TestClientSendsRequestAndParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "test-model", payload["model"])
		format, ok := payload["response_format"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "json_schema", format["type"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"decision\":\"CORRECT\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{
		Model: "test-model",
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, "sys"),
			content.TextMessage(content.RoleUser, "usr"),
		},
		ResponseFormat: &driver.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: &driver.JSONSchema{Name: "org_match_verify", Strict: true, Schema: map[string]any{"type": "object"}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	require.Equal(t, 3, resp.Usage.TotalTokens)
	require.Len(t, resp.Content, 1)
	require.True(t, strings.Contains(resp.Content[0].Text, "decision"))
}

func TestClientTargetsAzureDeployment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/openai/deployments/gpt-4o-mini/chat/completions", r.URL.Path)
		require.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		require.Equal(t, "azure-key", r.Header.Get("api-key"))
		require.Empty(t, r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "azure-key")
	client.APIVersion = "2024-06-01"
	client.HTTPClient = server.Client()
	require.Equal(t, "azure-openai", client.Name())

	resp, err := client.Complete(context.Background(), &driver.Request{Model: "gpt-4o-mini", Messages: userMessage("hi")})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Content[0].Text)
}

func TestClientErrorsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	_, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userMessage("hi")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 429")
	require.Contains(t, err.Error(), "slow down")

	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	require.Equal(t, 7*time.Second, perr.RetryAfter)
	require.True(t, perr.Transient())
}

func TestClientSurfacesRefusal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":null,"refusal":"I can't help with that."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	client.HTTPClient = server.Client()

	resp, err := client.Complete(context.Background(), &driver.Request{Model: "test", Messages: userMessage("hi")})
	require.NoError(t, err)
	require.Empty(t, resp.Content)
	require.Equal(t, "I can't help with that.", resp.Refusal)
}

func TestBuildChatRequestContentShapes(t *testing.T) {
	maxTokens := 64
	payload, err := buildChatRequest(&driver.Request{
		Model: "test",
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, "judge"),
			{Role: content.RoleUser, Content: []content.ContentBlock{content.TextBlock("Name A: Acme"), content.TextBlock("Name B: ACME Corp")}},
		},
		MaxTokens: &maxTokens,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"model": "test",
		"max_tokens": 64,
		"messages": [
			{"role": "system", "content": "judge"},
			{"role": "user", "content": [{"type": "text", "text": "Name A: Acme"}, {"type": "text", "text": "Name B: ACME Corp"}]}
		]
	}`, string(raw))

	_, err = buildChatRequest(&driver.Request{
		Model:    "test",
		Messages: []content.Message{{Role: content.RoleUser, Content: []content.ContentBlock{{Type: "image/png"}}}},
	})
	require.ErrorContains(t, err, "unsupported content type")
}

func TestErrorMessagePrefersProviderMessage(t *testing.T) {
	require.Equal(t, "Invalid parameter: response_format", errorMessage([]byte(`{"error":{"message":"Invalid parameter: response_format","type":"invalid_request_error","code":null}}`)))
	require.Equal(t, "upstream timeout", errorMessage([]byte(" upstream timeout\n")))
}
