package ailink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/ailink/content"
	"github.com/namelens/orgmatch/internal/ailink/driver"
	"github.com/namelens/orgmatch/internal/ailink/prompt"
)

type scriptedDriver struct {
	schema   bool
	replies  []string
	refusals []string
	errs     []error
	requests []*driver.Request
}

func (d *scriptedDriver) Complete(_ context.Context, req *driver.Request) (*driver.Response, error) {
	i := len(d.requests)
	d.requests = append(d.requests, req)
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	text := ""
	if i < len(d.replies) {
		text = d.replies[i]
	}
	resp := &driver.Response{Content: []content.ContentBlock{content.TextBlock(text)}}
	if i < len(d.refusals) {
		resp.Refusal = d.refusals[i]
	}
	return resp, nil
}

func (d *scriptedDriver) Name() string { return "scripted" }

func (d *scriptedDriver) Capabilities() driver.Capabilities {
	return driver.Capabilities{SupportsJSONSchema: d.schema}
}

func newTestService(t *testing.T, d driver.Driver) *Service {
	t.Helper()
	reg, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	return &Service{Driver: d, Registry: reg, Config: Config{Model: "test-model"}}
}

func TestJudgeParsesDecision(t *testing.T) {
	d := &scriptedDriver{replies: []string{`{"decision":"INCORRECT","reason":" different companies "}`}}
	svc := newTestService(t, d)

	judgment, err := svc.Judge(context.Background(), JudgeRequest{QueryName: "Acme Ltd", DictName: "Acme Foods GmbH"})
	require.NoError(t, err)
	require.Equal(t, DecisionIncorrect, judgment.Decision)
	require.Equal(t, "different companies", judgment.Reason)
	require.Nil(t, judgment.Raw)

	require.Len(t, d.requests, 1)
	req := d.requests[0]
	require.Equal(t, "test-model", req.Model)
	require.Equal(t, DefaultPromptSlug, req.PromptSlug)
	require.Len(t, req.Messages, 2)
	require.Equal(t, "system", req.Messages[0].Role)
	require.Contains(t, req.Messages[1].Content[0].Text, "Acme Ltd")
	require.Contains(t, req.Messages[1].Content[0].Text, "Acme Foods GmbH")
	require.Equal(t, "json_object", req.ResponseFormat.Type)
}

func TestJudgeAcceptsFencedJSON(t *testing.T) {
	d := &scriptedDriver{replies: []string{"```json\n{\"decision\":\"CORRECT\",\"reason\":\"same entity\"}\n```"}}
	judgment, err := newTestService(t, d).Judge(context.Background(), JudgeRequest{QueryName: "A", DictName: "B"})
	require.NoError(t, err)
	require.Equal(t, DecisionCorrect, judgment.Decision)
}

func TestJudgeRejectsMalformedResponses(t *testing.T) {
	for name, reply := range map[string]string{
		"not json":       "sure, they match",
		"wrong decision": `{"decision":"MAYBE","reason":"unsure"}`,
		"missing reason": `{"decision":"CORRECT"}`,
		"extra field":    `{"decision":"CORRECT","reason":"ok","confidence":0.9}`,
		"empty":          "",
	} {
		t.Run(name, func(t *testing.T) {
			d := &scriptedDriver{replies: []string{reply}}
			_, err := newTestService(t, d).Judge(context.Background(), JudgeRequest{QueryName: "A", DictName: "B"})
			require.Error(t, err)

			var raw *RawResponseError
			require.ErrorAs(t, err, &raw)
			require.False(t, IsTransient(err))
		})
	}
}

func TestJudgeReturnsProviderErrors(t *testing.T) {
	perr := &driver.ProviderError{Provider: "scripted", StatusCode: 503, Message: "busy"}
	d := &scriptedDriver{errs: []error{perr}}
	_, err := newTestService(t, d).Judge(context.Background(), JudgeRequest{QueryName: "A", DictName: "B"})
	require.ErrorIs(t, err, perr)
	require.True(t, IsTransient(err))
}

func TestJudgeFallsBackWhenSchemaUnsupported(t *testing.T) {
	d := &scriptedDriver{
		schema:  true,
		errs:    []error{&driver.ProviderError{StatusCode: 400, Message: "response_format json_schema is not supported"}},
		replies: []string{"", `{"decision":"CORRECT","reason":"same"}`},
	}
	judgment, err := newTestService(t, d).Judge(context.Background(), JudgeRequest{QueryName: "A", DictName: "B"})
	require.NoError(t, err)
	require.Equal(t, DecisionCorrect, judgment.Decision)
	require.Len(t, d.requests, 2)
	require.Equal(t, "json_object", d.requests[1].ResponseFormat.Type)
}

func TestJudgeCapturesRawWhenEnabled(t *testing.T) {
	d := &scriptedDriver{replies: []string{`{"decision":"CORRECT","reason":"same"}`}}
	svc := newTestService(t, d)
	svc.Config.Debug = DebugConfig{CaptureRawEnabled: true, CaptureRawMaxBytes: 4096}

	judgment, err := svc.Judge(context.Background(), JudgeRequest{QueryName: "A", DictName: "B"})
	require.NoError(t, err)
	require.JSONEq(t, `{"decision":"CORRECT","reason":"same"}`, string(judgment.Raw))
}

func TestNewServiceRequiresCredentials(t *testing.T) {
	_, err := NewService(Config{BaseURL: "https://example.test", Model: "m"})
	require.ErrorIs(t, err, ErrMissingCredentials)
	require.Contains(t, err.Error(), "api_key")

	svc, err := NewService(Config{BaseURL: "https://example.test", APIKey: "k", Model: "m", APIVersion: "2024-06-01"})
	require.NoError(t, err)
	require.Equal(t, "azure-openai", svc.Driver.Name())
	require.Equal(t, DefaultPromptSlug, svc.PromptSlug())
}

func TestErrorCodeAndTransience(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      string
		transient bool
	}{
		{"auth", &driver.ProviderError{StatusCode: 401}, "AILINK_PROVIDER_AUTH", false},
		{"forbidden", &driver.ProviderError{StatusCode: 403}, "AILINK_PROVIDER_AUTH", false},
		{"rate", &driver.ProviderError{StatusCode: 429}, "AILINK_PROVIDER_RATE_LIMIT", true},
		{"bad", &driver.ProviderError{StatusCode: 400}, "AILINK_PROVIDER_BAD_REQUEST", false},
		{"unavail", &driver.ProviderError{StatusCode: 503}, "AILINK_PROVIDER_UNAVAILABLE", true},
		{"timeout", context.DeadlineExceeded, "AILINK_PROVIDER_TIMEOUT", true},
		{"canceled", context.Canceled, "AILINK_PROVIDER_ERROR", false},
		{"credentials", ErrMissingCredentials, "AILINK_MISSING_CREDENTIALS", false},
		{"raw", &RawResponseError{Err: errors.New("bad")}, "AILINK_RESPONSE_INVALID", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.code, ErrorCode(tc.err))
			require.Equal(t, tc.transient, IsTransient(tc.err))
		})
	}
}

func TestJudgeReportsRefusal(t *testing.T) {
	d := &scriptedDriver{refusals: []string{"I can't help with that."}}
	svc := newTestService(t, d)

	_, err := svc.Judge(context.Background(), JudgeRequest{QueryName: "Initech", DictName: "Initrode"})
	require.ErrorIs(t, err, ErrRefused)
	var raw *RawResponseError
	require.ErrorAs(t, err, &raw)
	require.Equal(t, `"I can't help with that."`, string(raw.Raw))
}
