package compaction

import (
	"github.com/youssefsiam38/agentsession/types"
)

// charsPerToken is the estimation ratio. Real tokenizers average a little
// above 4 characters per token for English text, so dividing by 4 tends to
// overestimate, which biases toward compacting early rather than risking an
// oversized request.
const charsPerToken = 4

// EstimateTokens estimates the token cost of one message. It is a pure
// heuristic with no API calls: character counts divided by charsPerToken,
// rounded up. Unknown or empty content counts zero.
func EstimateTokens(msg types.Message) int {
	chars := 0
	switch msg.Role {
	case types.RoleUser, types.RoleSystem:
		for _, block := range msg.Content {
			if block.Type == types.ContentTypeText {
				chars += len(block.Text)
			}
		}
	case types.RoleAssistant:
		for _, block := range msg.Content {
			switch block.Type {
			case types.ContentTypeText:
				chars += len(block.Text)
			case types.ContentTypeThinking:
				chars += len(block.Thinking)
			case types.ContentTypeToolUse:
				chars += len(block.ToolName) + len(block.ToolInput)
			}
		}
	case types.RoleToolResult:
		for _, block := range msg.Content {
			if block.Type == types.ContentTypeToolResult {
				chars += len(block.ToolContent)
			}
		}
	}
	if chars == 0 {
		return 0
	}
	return (chars + charsPerToken - 1) / charsPerToken
}

// EstimateContextTokens sums EstimateTokens over a message list.
func EstimateContextTokens(messages []types.Message) int {
	total := 0
	for _, msg := range messages {
		total += EstimateTokens(msg)
	}
	return total
}

// ShouldCompact reports whether the estimated context size has crossed the
// compaction threshold: enabled and contextTokens above
// contextWindow - reserveTokens.
func ShouldCompact(contextTokens, contextWindow int, settings Settings) bool {
	if !settings.Enabled {
		return false
	}
	return contextTokens > contextWindow-settings.ReserveTokens
}
