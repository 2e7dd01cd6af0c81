package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/namelens/orgmatch/internal/ailink/driver"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements the OpenAI chat completions API via direct HTTP.
//
// When APIVersion is set the client targets an Azure OpenAI deployment:
// the model is used as the deployment name, the key is sent in the api-key
// header and api-version is added to the query string.
type Client struct {
	BaseURL    string
	APIKey     string
	APIVersion string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	if c != nil && c.isAzure() {
		return "azure-openai"
	}
	return "openai"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportsJSONSchema: true,
	}
}

// Complete sends a chat completion request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildChatRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.endpoint(req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if c.isAzure() {
		httpReq.Header.Set("api-key", c.APIKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	entry := driver.TraceEntry{
		Driver:      c.Name(),
		Endpoint:    endpoint,
		Method:      http.MethodPost,
		Model:       req.Model,
		PromptSlug:  req.PromptSlug,
		RequestBody: body,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		entry.Error = err.Error()
		entry.DurationMs = time.Since(start).Milliseconds()
		driver.Trace(entry)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	entry.StatusCode = resp.StatusCode
	entry.DurationMs = time.Since(start).Milliseconds()
	if json.Valid(respBody) {
		entry.Response = respBody
	}
	driver.Trace(entry)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &driver.ProviderError{
			Provider:    c.Name(),
			StatusCode:  resp.StatusCode,
			Message:     errorMessage(respBody),
			RawResponse: respBody,
			RetryAfter:  driver.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return toDriverResponse(&parsed)
}

func (c *Client) isAzure() bool {
	return strings.TrimSpace(c.APIVersion) != ""
}

func (c *Client) endpoint(model string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if !c.isAzure() {
		return base + "/chat/completions"
	}
	query := url.Values{}
	query.Set("api-version", strings.TrimSpace(c.APIVersion))
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?%s", base, url.PathEscape(model), query.Encode())
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
