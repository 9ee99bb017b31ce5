package types

import (
	"encoding/json"
	"strings"
)

// Role represents the message role
type Role string

const (
	// RoleUser represents a user message
	RoleUser Role = "user"

	// RoleAssistant represents an assistant message
	RoleAssistant Role = "assistant"

	// RoleSystem represents a system message
	RoleSystem Role = "system"

	// RoleToolResult represents a message carrying tool results back to the model
	RoleToolResult Role = "toolResult"
)

// Message represents one conversation message as stored in the session log.
// The content is kept in the structured block form the generation engine uses
// so the token estimator and compaction planner can inspect it.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Text returns the concatenated text segments of the message.
func (m Message) Text() string {
	var parts []string
	for _, block := range m.Content {
		if block.Type == ContentTypeText && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ContentType represents the type of content block
type ContentType string

const (
	// ContentTypeText represents text content
	ContentTypeText ContentType = "text"

	// ContentTypeThinking represents model reasoning content
	ContentTypeThinking ContentType = "thinking"

	// ContentTypeToolUse represents a tool use block
	ContentTypeToolUse ContentType = "tool_use"

	// ContentTypeToolResult represents a tool result block
	ContentTypeToolResult ContentType = "tool_result"

	// ContentTypeImage represents an image block
	ContentTypeImage ContentType = "image"
)

// ContentBlock represents a piece of content in a message
type ContentBlock struct {
	Type ContentType `json:"type"`

	// Text content
	Text string `json:"text,omitempty"`

	// Thinking content
	Thinking string `json:"thinking,omitempty"`

	// Tool use content
	ToolUseID string          `json:"id,omitempty"`
	ToolName  string          `json:"name,omitempty"`
	ToolInput json.RawMessage `json:"input,omitempty"`

	// Tool result content
	ToolResultID string `json:"tool_use_id,omitempty"`
	ToolContent  string `json:"content,omitempty"`
	IsError      bool   `json:"is_error,omitempty"`

	// Image content
	ImageSource *ImageSource `json:"source,omitempty"`
}

// ImageSource represents an image source
type ImageSource struct {
	Type      string `json:"type"`       // "base64" or "url"
	MediaType string `json:"media_type"` // "image/jpeg", "image/png", etc.
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// ToolInputString returns the serialized tool input for a tool_use block.
func (b ContentBlock) ToolInputString() string {
	if len(b.ToolInput) == 0 {
		return ""
	}
	return string(b.ToolInput)
}

// ToolInputField extracts a string field from a tool_use block's input.
// Returns "" when the input is not an object or the field is absent.
func (b ContentBlock) ToolInputField(key string) string {
	if len(b.ToolInput) == 0 {
		return ""
	}
	var input map[string]any
	if err := json.Unmarshal(b.ToolInput, &input); err != nil {
		return ""
	}
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}
