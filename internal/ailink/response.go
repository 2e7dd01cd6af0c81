package ailink

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"

	"github.com/namelens/orgmatch/internal/ailink/prompt"
)

// ErrRefused is wrapped when the model declines to answer.
var ErrRefused = errors.New("model refused to judge the pair")

// RawResponseError wraps a decode or schema failure with the payload the
// model returned.
type RawResponseError struct {
	Err error
	Raw json.RawMessage
}

func (e *RawResponseError) Error() string {
	if e == nil || e.Err == nil {
		return "invalid judgment response"
	}
	return "invalid judgment response: " + e.Err.Error()
}

func (e *RawResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// decodeJudgment validates raw against the prompt's response schema and
// decodes it. Any shape other than a two-valued decision plus a reason is
// a parse failure.
func decodeJudgment(def *prompt.Prompt, raw string, debug DebugConfig) (*Judgment, error) {
	payload := []byte(stripCodeFence(raw))
	if err := validateResponse(def, payload); err != nil {
		return nil, &RawResponseError{Err: err, Raw: rawPayload(raw)}
	}

	var parsed Judgment
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, &RawResponseError{Err: fmt.Errorf("decode response: %w", err), Raw: rawPayload(raw)}
	}
	parsed.Decision = Decision(strings.ToUpper(strings.TrimSpace(string(parsed.Decision))))
	if parsed.Decision != DecisionCorrect && parsed.Decision != DecisionIncorrect {
		return nil, &RawResponseError{Err: fmt.Errorf("unexpected decision %q", parsed.Decision), Raw: rawPayload(raw)}
	}
	parsed.Reason = strings.TrimSpace(parsed.Reason)
	parsed.Raw = captureRaw(debug, string(payload))
	return &parsed, nil
}

// validators caches a compiled response-schema check per prompt. Prompts
// are immutable once loaded.
var validators sync.Map

type checkFunc func(payload []byte) error

func responseCheck(def *prompt.Prompt) (checkFunc, error) {
	if c, ok := validators.Load(def); ok {
		return c.(checkFunc), nil
	}
	schemaBytes, err := json.Marshal(def.Config.ResponseSchema)
	if err != nil {
		return nil, fmt.Errorf("encode response schema: %w", err)
	}
	v, err := schema.NewValidator(schemaBytes)
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}
	check := checkFunc(func(payload []byte) error {
		diagnostics, err := v.ValidateJSON(payload)
		if err != nil {
			return err
		}
		if len(diagnostics) > 0 {
			return fmt.Errorf("response schema validation failed: %s", diagnostics[0].Message)
		}
		return nil
	})
	actual, _ := validators.LoadOrStore(def, check)
	return actual.(checkFunc), nil
}

func validateResponse(def *prompt.Prompt, payload []byte) error {
	if def == nil || len(def.Config.ResponseSchema) == 0 {
		if !json.Valid(payload) {
			return errors.New("response is not valid JSON")
		}
		return nil
	}
	check, err := responseCheck(def)
	if err != nil {
		return err
	}
	return check(payload)
}

// stripCodeFence removes a surrounding ```json fence some models add.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if _, rest, ok := strings.Cut(trimmed, "\n"); ok {
		trimmed = rest
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(trimmed), "```"))
}

// captureRaw returns the payload to attach to a judgment, truncated to the
// configured size, or nil when capture is off.
func captureRaw(cfg DebugConfig, raw string) json.RawMessage {
	if !cfg.CaptureRawEnabled || cfg.CaptureRawMaxBytes <= 0 {
		return nil
	}
	if len(raw) > cfg.CaptureRawMaxBytes {
		raw = raw[:cfg.CaptureRawMaxBytes]
	}
	return json.RawMessage(raw)
}

// rawPayload keeps a model reply for error reporting. Replies that are not
// JSON are quoted so the result is always a valid JSON value.
func rawPayload(raw string) json.RawMessage {
	line := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
	if json.Valid([]byte(line)) {
		return json.RawMessage(line)
	}
	quoted, err := json.Marshal(line)
	if err != nil {
		return nil
	}
	return quoted
}
