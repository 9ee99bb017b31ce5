package compaction

import (
	"sort"
	"strings"

	"github.com/youssefsiam38/agentsession"
	"github.com/youssefsiam38/agentsession/types"
)

// Preparation is a planned compaction over a snapshot of the context. It
// carries everything the summarizer and the commit step need, so the model
// call can run without holding the session.
type Preparation struct {
	// FirstKeptEntryID is the boundary entry. Replay after compaction resumes
	// here; every message before it is represented only by the summary.
	FirstKeptEntryID string

	// MessagesToSummarize is the span being replaced, oldest first. It holds
	// whole turns only; a pending turn's head never lands here.
	MessagesToSummarize []agentsession.ContextMessage

	// TurnPrefixMessages is the leading portion of a split turn, carried into
	// the summarization prompt so the pending turn is not lost. Empty unless
	// IsSplitTurn is set.
	TurnPrefixMessages []agentsession.ContextMessage

	// IsSplitTurn marks a cut that falls inside a turn because the turn's
	// leading portion alone exceeds KeepRecentTokens.
	IsSplitTurn bool

	// TokensBefore is the estimated size of the full context at planning time.
	TokensBefore int

	// FileOps records the file-touching tool calls observed in
	// MessagesToSummarize, in order of appearance.
	FileOps []FileOp
}

// Prepare computes a turn-safe cut point over a context snapshot.
//
// The walk runs backward from the newest message, accumulating estimated
// tokens until the kept tail covers KeepRecentTokens. The message where the
// threshold is first reached is the candidate boundary, which is then snapped
// back to the start of the turn containing it so an assistant/tool exchange
// is never cut away from its user message. If that turn's leading portion
// alone exceeds the kept budget, the cut stays mid-turn instead: IsSplitTurn
// is set and the head travels in TurnPrefixMessages.
//
// Prepare returns nil when there is nothing to compact: the context fits in
// the kept budget, everything old enough to cut belongs to the pending turn,
// or no user message exists at or before the boundary (a single headless
// turn is refused rather than cut blind).
func Prepare(messages []agentsession.ContextMessage, settings Settings) *Preparation {
	if len(messages) == 0 {
		return nil
	}

	costs := make([]int, len(messages))
	total := 0
	for i, m := range messages {
		costs[i] = EstimateTokens(m.Message)
		total += costs[i]
	}

	boundary := -1
	kept := 0
	for i := len(messages) - 1; i >= 0; i-- {
		kept += costs[i]
		if kept >= settings.KeepRecentTokens {
			boundary = i
			break
		}
	}
	if boundary <= 0 {
		return nil
	}

	turnStart := -1
	for i := boundary; i >= 0; i-- {
		if messages[i].Message.Role == types.RoleUser {
			turnStart = i
			break
		}
	}
	if turnStart == -1 {
		return nil
	}

	prep := &Preparation{TokensBefore: total}

	leadTokens := 0
	for i := turnStart; i < boundary; i++ {
		leadTokens += costs[i]
	}
	if leadTokens > settings.KeepRecentTokens {
		prep.IsSplitTurn = true
		prep.FirstKeptEntryID = messages[boundary].EntryID
		prep.MessagesToSummarize = messages[:turnStart]
		prep.TurnPrefixMessages = messages[turnStart:boundary]
	} else {
		prep.FirstKeptEntryID = messages[turnStart].EntryID
		prep.MessagesToSummarize = messages[:turnStart]
	}

	if len(prep.MessagesToSummarize) == 0 {
		return nil
	}

	prep.FileOps = collectFileOps(prep.MessagesToSummarize)
	return prep
}

// FileAction classifies what a tool call did to a file.
type FileAction string

const (
	FileActionRead    FileAction = "read"
	FileActionWritten FileAction = "written"
	FileActionEdited  FileAction = "edited"
)

// FileOp is one observed file-touching tool call.
type FileOp struct {
	Path   string
	Action FileAction
}

// collectFileOps extracts file-touching tool calls from assistant messages.
// The path comes from the tool input's "path" field, falling back to
// "file_path"; calls without a usable path are skipped.
func collectFileOps(messages []agentsession.ContextMessage) []FileOp {
	var ops []FileOp
	for _, m := range messages {
		if m.Message.Role != types.RoleAssistant {
			continue
		}
		for _, block := range m.Message.Content {
			if block.Type != types.ContentTypeToolUse {
				continue
			}
			action, ok := fileToolAction(block.ToolName)
			if !ok {
				continue
			}
			path := block.ToolInputField("path")
			if path == "" {
				path = block.ToolInputField("file_path")
			}
			if path == "" {
				continue
			}
			ops = append(ops, FileOp{Path: path, Action: action})
		}
	}
	return ops
}

// fileToolAction maps a tool name to the file action it performs. Hosts name
// their tools differently, so common aliases are folded in.
func fileToolAction(name string) (FileAction, bool) {
	switch strings.ToLower(name) {
	case "read", "read_file", "view", "cat":
		return FileActionRead, true
	case "write", "write_file", "create_file":
		return FileActionWritten, true
	case "edit", "edit_file", "patch", "str_replace", "multi_edit":
		return FileActionEdited, true
	}
	return "", false
}

// ComputeFileLists partitions observed file operations into files that were
// only read and files that were modified. A file both read and written lands
// in the modified list only. Both lists come back deduplicated and sorted.
func ComputeFileLists(ops []FileOp) (readFiles, modifiedFiles []string) {
	read := make(map[string]bool)
	modified := make(map[string]bool)
	for _, op := range ops {
		switch op.Action {
		case FileActionRead:
			read[op.Path] = true
		case FileActionWritten, FileActionEdited:
			modified[op.Path] = true
		}
	}
	for path := range read {
		if !modified[path] {
			readFiles = append(readFiles, path)
		}
	}
	for path := range modified {
		modifiedFiles = append(modifiedFiles, path)
	}
	sort.Strings(readFiles)
	sort.Strings(modifiedFiles)
	return readFiles, modifiedFiles
}
