package types

import (
	"encoding/json"
	"testing"
)

func TestMessageText(t *testing.T) {
	tests := []struct {
		name     string
		message  Message
		expected string
	}{
		{
			name:     "no content",
			message:  Message{Role: RoleUser},
			expected: "",
		},
		{
			name: "single text block",
			message: Message{Role: RoleUser, Content: []ContentBlock{
				{Type: ContentTypeText, Text: "hello"},
			}},
			expected: "hello",
		},
		{
			name: "joins multiple text blocks",
			message: Message{Role: RoleAssistant, Content: []ContentBlock{
				{Type: ContentTypeText, Text: "one"},
				{Type: ContentTypeThinking, Thinking: "hidden"},
				{Type: ContentTypeText, Text: "two"},
			}},
			expected: "one\ntwo",
		},
		{
			name: "ignores non-text blocks",
			message: Message{Role: RoleAssistant, Content: []ContentBlock{
				{Type: ContentTypeToolUse, ToolName: "read"},
			}},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.message.Text(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestToolInputField(t *testing.T) {
	block := ContentBlock{
		Type:      ContentTypeToolUse,
		ToolName:  "read",
		ToolInput: json.RawMessage(`{"path":"main.go","offset":10}`),
	}

	if got := block.ToolInputField("path"); got != "main.go" {
		t.Errorf("expected 'main.go', got %q", got)
	}
	if got := block.ToolInputField("missing"); got != "" {
		t.Errorf("expected empty string for missing field, got %q", got)
	}
	if got := block.ToolInputField("offset"); got != "" {
		t.Errorf("expected empty string for non-string field, got %q", got)
	}

	empty := ContentBlock{Type: ContentTypeToolUse}
	if got := empty.ToolInputField("path"); got != "" {
		t.Errorf("expected empty string for empty input, got %q", got)
	}

	broken := ContentBlock{Type: ContentTypeToolUse, ToolInput: json.RawMessage(`[1,2]`)}
	if got := broken.ToolInputField("path"); got != "" {
		t.Errorf("expected empty string for non-object input, got %q", got)
	}
}
