package ailink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/namelens/orgmatch/internal/ailink/content"
	"github.com/namelens/orgmatch/internal/ailink/driver"
	"github.com/namelens/orgmatch/internal/ailink/driver/openai"
	"github.com/namelens/orgmatch/internal/ailink/prompt"
)

const (
	// DefaultPromptSlug names the embedded verification prompt.
	DefaultPromptSlug = "org-match-verify"

	defaultTimeout = 60 * time.Second
	maxTimeout     = 5 * time.Minute
)

// Decision is the judgment service verdict for one name pair.
type Decision string

const (
	DecisionCorrect   Decision = "CORRECT"
	DecisionIncorrect Decision = "INCORRECT"
	// DecisionError marks a row whose judgment could not be obtained.
	DecisionError Decision = "ERROR"
)

// JudgeRequest carries the two names being compared.
type JudgeRequest struct {
	QueryName string
	DictName  string
}

// Judgment is a parsed, schema-valid verdict.
type Judgment struct {
	Decision Decision        `json:"decision"`
	Reason   string          `json:"reason"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Judge decides whether two names refer to the same organization.
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (*Judgment, error)
}

// Service renders the verification prompt, calls the driver and validates
// the structured response.
type Service struct {
	Driver   driver.Driver
	Registry prompt.Registry
	Config   Config
}

// NewService validates credentials and builds a Service backed by the
// OpenAI-compatible driver.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registry, err := prompt.LoadRegistry(cfg.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	client := openai.NewClient(cfg.BaseURL, cfg.APIKey)
	client.APIVersion = cfg.APIVersion
	return &Service{Driver: client, Registry: registry, Config: cfg}, nil
}

// PromptSlug returns the configured prompt slug.
func (s *Service) PromptSlug() string {
	if s == nil || strings.TrimSpace(s.Config.PromptSlug) == "" {
		return DefaultPromptSlug
	}
	return strings.TrimSpace(s.Config.PromptSlug)
}

// Model returns the configured model or deployment id.
func (s *Service) Model() string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.Config.Model)
}

// Judge implements Judge. Provider failures are returned unchanged so that
// callers can classify them with IsTransient; malformed responses are
// returned as *RawResponseError.
func (s *Service) Judge(ctx context.Context, req JudgeRequest) (*Judgment, error) {
	if s == nil || s.Driver == nil {
		return nil, errors.New("ailink driver not configured")
	}
	if s.Registry == nil {
		return nil, errors.New("ailink prompt registry not configured")
	}

	def, err := s.Registry.Get(s.PromptSlug())
	if err != nil {
		return nil, err
	}
	system, user, err := def.Render(map[string]string{
		"query_name": strings.TrimSpace(req.QueryName),
		"dict_name":  strings.TrimSpace(req.DictName),
		"input":      strings.TrimSpace(req.QueryName) + "\n" + strings.TrimSpace(req.DictName),
	})
	if err != nil {
		return nil, err
	}

	driverReq := &driver.Request{
		Model: s.Model(),
		Messages: []content.Message{
			content.TextMessage(content.RoleSystem, system),
			content.TextMessage(content.RoleUser, user),
		},
		ResponseFormat: responseFormatFor(s.Driver, def),
		Temperature:    def.Config.Temperature,
		MaxTokens:      def.Config.MaxTokens,
		PromptSlug:     def.Config.Slug,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	resp, err := s.Driver.Complete(ctx, driverReq)
	if err != nil && isUnsupportedSchemaError(err) {
		fallbackToJSONObject(driverReq)
		resp, err = s.Driver.Complete(ctx, driverReq)
	}
	if err != nil {
		return nil, err
	}

	if resp == nil {
		return nil, &RawResponseError{Err: errors.New("empty response")}
	}
	if refusal := strings.TrimSpace(resp.Refusal); refusal != "" {
		return nil, &RawResponseError{Err: ErrRefused, Raw: rawPayload(refusal)}
	}
	raw := content.JoinText(resp.Content)
	if strings.TrimSpace(raw) == "" {
		return nil, &RawResponseError{Err: errors.New("empty response content")}
	}
	return decodeJudgment(def, raw, s.Config.Debug)
}

func (s *Service) timeout() time.Duration {
	duration := s.Config.Timeout
	if duration <= 0 {
		duration = defaultTimeout
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}
	return duration
}
