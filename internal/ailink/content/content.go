// Package content holds the chat message shapes exchanged with judgment
// drivers. Judgments are text-only; there is no binary or image content.
package content

import "strings"

// ContentType is an IANA media type.
type ContentType string

const ContentTypeText ContentType = "text/plain"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentBlock is one piece of message text.
type ContentBlock struct {
	Type ContentType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// Message is a chat message.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage returns a message holding a single text block.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{TextBlock(text)}}
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentTypeText, Text: text}
}

// JoinText concatenates the text blocks, one per line.
func JoinText(blocks []ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Type == ContentTypeText || block.Type == "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
