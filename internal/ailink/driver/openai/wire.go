package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/namelens/orgmatch/internal/ailink/content"
	"github.com/namelens/orgmatch/internal/ailink/driver"
)

// Chat completions request and response bodies. Only the fields the
// judgment service sends or reads are modelled.

type chatCompletionRequest struct {
	Model          string                 `json:"model"`
	Messages       []chatMessage          `json:"messages"`
	ResponseFormat *driver.ResponseFormat `json:"response_format,omitempty"`
	Temperature    *float64               `json:"temperature,omitempty"`
	MaxTokens      *int                   `json:"max_tokens,omitempty"`
}

// chatMessage content is a plain string for a single text block and a
// list of parts otherwise.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *driver.Usage `json:"usage,omitempty"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func buildChatRequest(req *driver.Request) (*chatCompletionRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	messages := make([]chatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		body, err := messageContent(msg.Content)
		if err != nil {
			return nil, err
		}
		messages = append(messages, chatMessage{Role: msg.Role, Content: body})
	}
	return &chatCompletionRequest{
		Model:          req.Model,
		Messages:       messages,
		ResponseFormat: req.ResponseFormat,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	}, nil
}

func messageContent(blocks []content.ContentBlock) (any, error) {
	for _, b := range blocks {
		if b.Type != content.ContentTypeText {
			return nil, fmt.Errorf("unsupported content type: %s", b.Type)
		}
	}
	switch len(blocks) {
	case 0:
		return "", nil
	case 1:
		return blocks[0].Text, nil
	}
	parts := make([]textPart, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, textPart{Type: "text", Text: b.Text})
	}
	return parts, nil
}

func toDriverResponse(resp *chatCompletionResponse) (*driver.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}
	first := resp.Choices[0]
	out := &driver.Response{
		Refusal:      first.Message.Refusal,
		FinishReason: first.FinishReason,
		Usage:        resp.Usage,
	}
	if first.Message.Content != "" {
		out.Content = []content.ContentBlock{content.TextBlock(first.Message.Content)}
	}
	return out, nil
}

// errorMessage extracts error.message from a provider error body, falling
// back to the trimmed body.
func errorMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return strings.TrimSpace(parsed.Error.Message)
	}
	return strings.TrimSpace(string(body))
}
