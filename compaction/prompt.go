package compaction

import (
	"strings"

	"github.com/youssefsiam38/agentsession"
	"github.com/youssefsiam38/agentsession/types"
)

// SummarizationSystemPrompt is the system prompt used for context
// summarization. It instructs the model to create a structured summary that
// preserves critical information from the conversation being compacted.
//
// The 9-section structure is based on production patterns from AI coding
// assistants like Claude Code, Aider, and Cline.
const SummarizationSystemPrompt = `You are a conversation summarizer for an AI agent system. Your task is to create a comprehensive summary of the conversation that will replace the original messages while preserving all critical context.

Create a structured summary with the following 9 sections. Each section should capture the relevant information from the conversation. If a section has no relevant content, write "None" for that section.

## Format

1. **Primary Request and Intent**
   - The user's main goal or request
   - Any constraints or requirements specified
   - The overall context of what they're trying to accomplish

2. **Key Technical Concepts**
   - Important technical terms, APIs, or frameworks discussed
   - Design patterns or architectural decisions made
   - Any domain-specific knowledge established

3. **Files and Code Sections**
   - Files that were read, created, or modified, and why they matter
   - Key code snippets or implementations
   - The <read-files> and <modified-files> lists at the end of the transcript are authoritative; carry them into this section

4. **Errors and Fixes**
   - Errors encountered during the conversation
   - Solutions that were applied
   - Workarounds or alternatives discussed

5. **Problem Solving**
   - The approach taken to solve problems
   - Alternatives that were considered
   - Reasoning behind decisions made

6. **User Preferences and Constraints**
   - Any preferences the user expressed
   - Constraints or limitations mentioned
   - Style or formatting preferences

7. **Pending Tasks**
   - Tasks mentioned but not yet started
   - Follow-up items discussed
   - Future work planned

8. **Current Work**
   - What was being actively worked on
   - The current state of any implementations
   - Progress made so far

9. **Next Step**
   - The immediate next action to take
   - What the agent should do when resuming
   - Any context needed for continuation

## Guidelines

- Be concise but complete - preserve all information needed to continue the conversation
- Use bullet points for clarity
- Include specific details (file names, function names, error messages)
- Maintain the chronological order of events within each section
- Preserve exact user quotes when they convey important intent
- Do not add information that wasn't in the original conversation
- Focus on actionable information over commentary`

// BranchSummarySystemPrompt is the system prompt used when a branch is
// abandoned. The resulting synopsis is stored at the branch point so later
// turns know what was tried there without replaying it.
const BranchSummarySystemPrompt = `You are summarizing a portion of an AI agent conversation that is being abandoned. The user is rewinding to an earlier point and will continue in a different direction; your summary is the only record of the abandoned work that stays in context.

Write a short prose summary (a few paragraphs at most) covering:

- What was attempted in the abandoned portion
- What was learned: results, errors, dead ends
- Any files that were touched and how
- Why the direction may have been abandoned, if the conversation makes it apparent

Do not speculate beyond what the messages contain. Do not address the user; write in the third person, past tense.`

// BuildSummarizationUserPrompt wraps a serialized transcript as the user
// message for a compaction summarization request.
func BuildSummarizationUserPrompt(transcript string) string {
	return `Please summarize the following conversation according to the format specified in your instructions.

<conversation>
` + transcript + `
</conversation>

Create a comprehensive summary that will allow continuation of this conversation with full context. Follow the 9-section format exactly.`
}

// BuildBranchSummaryUserPrompt wraps a serialized transcript as the user
// message for a branch summary request.
func BuildBranchSummaryUserPrompt(transcript string) string {
	return `Summarize the following abandoned portion of a conversation according to your instructions.

<abandoned-branch>
` + transcript + `
</abandoned-branch>`
}

// SerializeTranscript renders a planned compaction into the flat transcript
// the summarization model sees. Messages appear oldest first with the split
// turn's head, if any, at the end, followed by the file-operation block.
func SerializeTranscript(prep *Preparation) string {
	messages := prep.MessagesToSummarize
	if len(prep.TurnPrefixMessages) > 0 {
		messages = append(messages[:len(messages):len(messages)], prep.TurnPrefixMessages...)
	}
	transcript := SerializeMessages(messages)
	readFiles, modifiedFiles := ComputeFileLists(prep.FileOps)
	if block := RenderFileLists(readFiles, modifiedFiles); block != "" {
		transcript += "\n\n" + block
	}
	return transcript
}

// SerializeMessages renders messages as a flat role-tagged transcript, one
// block per message, blocks separated by blank lines. The tags are the exact
// human-auditable input format for summarization:
//
//	[User]: ...
//	[Assistant]: ...
//	[Assistant tool calls]: toolName({...})
//	[Tool result]: ...
func SerializeMessages(messages []agentsession.ContextMessage) string {
	var blocks []string
	for _, m := range messages {
		if block := serializeMessage(m.Message); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func serializeMessage(msg types.Message) string {
	var lines []string
	switch msg.Role {
	case types.RoleUser, types.RoleSystem:
		tag := "[User]"
		if msg.Role == types.RoleSystem {
			tag = "[System]"
		}
		if text := msg.Text(); text != "" {
			lines = append(lines, tag+": "+text)
		}
		lines = append(lines, toolResultLines(msg)...)
	case types.RoleAssistant:
		if text := msg.Text(); text != "" {
			lines = append(lines, "[Assistant]: "+text)
		}
		var calls []string
		for _, block := range msg.Content {
			if block.Type == types.ContentTypeToolUse {
				calls = append(calls, block.ToolName+"("+block.ToolInputString()+")")
			}
		}
		if len(calls) > 0 {
			lines = append(lines, "[Assistant tool calls]: "+strings.Join(calls, ", "))
		}
	case types.RoleToolResult:
		lines = append(lines, toolResultLines(msg)...)
	}
	return strings.Join(lines, "\n")
}

func toolResultLines(msg types.Message) []string {
	var lines []string
	for _, block := range msg.Content {
		if block.Type == types.ContentTypeToolResult && block.ToolContent != "" {
			lines = append(lines, "[Tool result]: "+block.ToolContent)
		}
	}
	return lines
}

// RenderFileLists renders the file-operation block appended to a compaction
// transcript. Only non-empty sections are emitted; both empty yields "".
func RenderFileLists(readFiles, modifiedFiles []string) string {
	var sections []string
	if len(readFiles) > 0 {
		sections = append(sections, "<read-files>\n"+strings.Join(readFiles, "\n")+"\n</read-files>")
	}
	if len(modifiedFiles) > 0 {
		sections = append(sections, "<modified-files>\n"+strings.Join(modifiedFiles, "\n")+"\n</modified-files>")
	}
	return strings.Join(sections, "\n\n")
}
