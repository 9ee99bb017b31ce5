package agentsession

import (
	"encoding/json"

	"github.com/youssefsiam38/agentsession/types"
)

// Re-export types from types package so callers only need one import
type (
	Role         = types.Role
	Message      = types.Message
	ContentType  = types.ContentType
	ContentBlock = types.ContentBlock
	ImageSource  = types.ImageSource
)

// Re-export constants
const (
	RoleUser       = types.RoleUser
	RoleAssistant  = types.RoleAssistant
	RoleSystem     = types.RoleSystem
	RoleToolResult = types.RoleToolResult

	ContentTypeText       = types.ContentTypeText
	ContentTypeThinking   = types.ContentTypeThinking
	ContentTypeToolUse    = types.ContentTypeToolUse
	ContentTypeToolResult = types.ContentTypeToolResult
	ContentTypeImage      = types.ContentTypeImage
)

// NewMessage creates a new message
func NewMessage(role Role, content []ContentBlock) types.Message {
	return types.Message{
		Role:    role,
		Content: content,
	}
}

// NewUserMessage creates a new user message with text content
func NewUserMessage(text string) types.Message {
	return NewMessage(RoleUser, []ContentBlock{
		{Type: ContentTypeText, Text: text},
	})
}

// NewAssistantMessage creates a new assistant message
func NewAssistantMessage(content []ContentBlock) types.Message {
	return NewMessage(RoleAssistant, content)
}

// NewToolResultMessage creates a tool-result message carrying a single result block
func NewToolResultMessage(toolUseID string, content string, isError bool) types.Message {
	return NewMessage(RoleToolResult, []ContentBlock{
		NewToolResultBlock(toolUseID, content, isError),
	})
}

// NewTextBlock creates a text content block
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{
		Type: ContentTypeText,
		Text: text,
	}
}

// NewThinkingBlock creates a thinking content block
func NewThinkingBlock(thinking string) ContentBlock {
	return ContentBlock{
		Type:     ContentTypeThinking,
		Thinking: thinking,
	}
}

// NewToolUseBlock creates a tool use content block
func NewToolUseBlock(id, name string, input map[string]any) ContentBlock {
	inputRaw, _ := json.Marshal(input)
	return ContentBlock{
		Type:      ContentTypeToolUse,
		ToolUseID: id,
		ToolName:  name,
		ToolInput: inputRaw,
	}
}

// NewToolResultBlock creates a tool result content block
func NewToolResultBlock(toolUseID string, content string, isError bool) ContentBlock {
	return ContentBlock{
		Type:         ContentTypeToolResult,
		ToolResultID: toolUseID,
		ToolContent:  content,
		IsError:      isError,
	}
}
