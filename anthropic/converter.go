// Package anthropic bridges rebuilt session context to the Anthropic API.
//
// The session log stores messages in provider-neutral form; hosts calling
// Claude convert the context builder's output with ToMessageParams before
// each request:
//
//	built := session.Context()
//	params := anthropic.MessageNewParams{
//	    Model:    anthropic.Model(model),
//	    Messages: sessionanthropic.ToMessageParams(built.MessageList()),
//	}
package anthropic

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/youssefsiam38/agentsession/types"
)

// ToMessageParams converts session messages to Anthropic message parameters.
// System messages are skipped (the API takes them separately, see
// ToSystemBlocks); tool-result messages become user-role messages carrying
// their result blocks, which is how the API expects tool output back.
func ToMessageParams(messages []types.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == types.RoleSystem {
			continue
		}

		role := anthropic.MessageParamRoleUser
		if msg.Role == types.RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
		for _, block := range msg.Content {
			if converted, ok := convertContentBlock(block); ok {
				blocks = append(blocks, converted)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		params = append(params, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return params
}

// convertContentBlock converts a single content block. Thinking blocks are
// dropped: the API requires their original signature to replay them, and the
// session log does not persist signatures.
func convertContentBlock(block types.ContentBlock) (anthropic.ContentBlockParamUnion, bool) {
	switch block.Type {
	case types.ContentTypeText:
		if block.Text == "" {
			return anthropic.ContentBlockParamUnion{}, false
		}
		return anthropic.NewTextBlock(block.Text), true

	case types.ContentTypeToolUse:
		var input any
		if len(block.ToolInput) > 0 {
			_ = json.Unmarshal(block.ToolInput, &input)
		}
		// The API requires a dictionary, not null
		if input == nil {
			input = map[string]any{}
		}
		return anthropic.NewToolUseBlock(block.ToolUseID, input, block.ToolName), true

	case types.ContentTypeToolResult:
		return anthropic.NewToolResultBlock(block.ToolResultID, block.ToolContent, block.IsError), true

	case types.ContentTypeImage:
		if block.ImageSource == nil {
			return anthropic.ContentBlockParamUnion{}, false
		}
		switch block.ImageSource.Type {
		case "base64":
			return anthropic.NewImageBlockBase64(block.ImageSource.MediaType, block.ImageSource.Data), true
		case "url":
			return anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: block.ImageSource.URL}), true
		}
	}
	return anthropic.ContentBlockParamUnion{}, false
}

// ToSystemBlocks creates system prompt blocks from the concatenated text of
// the given system messages plus an optional explicit prompt.
func ToSystemBlocks(prompt string, messages []types.Message) []anthropic.TextBlockParam {
	parts := make([]string, 0, len(messages)+1)
	if prompt != "" {
		parts = append(parts, prompt)
	}
	for _, msg := range messages {
		if msg.Role != types.RoleSystem {
			continue
		}
		if text := msg.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return []anthropic.TextBlockParam{{Text: strings.Join(parts, "\n\n")}}
}

// ToolCall represents a tool call from the assistant.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ExtractToolCalls extracts tool calls from a message's content blocks.
func ExtractToolCalls(msg types.Message) []ToolCall {
	var calls []ToolCall
	for _, block := range msg.Content {
		if block.Type == types.ContentTypeToolUse {
			calls = append(calls, ToolCall{
				ID:    block.ToolUseID,
				Name:  block.ToolName,
				Input: block.ToolInput,
			})
		}
	}
	return calls
}

// HasToolCalls checks if a message contains tool calls.
func HasToolCalls(msg types.Message) bool {
	for _, block := range msg.Content {
		if block.Type == types.ContentTypeToolUse {
			return true
		}
	}
	return false
}

// IsContextTooLargeError checks whether an API error indicates the request
// exceeded the model's context. Hosts typically react by compacting and
// retrying.
func IsContextTooLargeError(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Error())
	return strings.Contains(msg, "max_tokens") ||
		strings.Contains(msg, "context_length") ||
		strings.Contains(msg, "token limit")
}

// IsRetryableError checks if an API error should be retried.
func IsRetryableError(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
}
