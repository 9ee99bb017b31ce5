package agentsession

import (
	"fmt"

	"github.com/youssefsiam38/agentsession/types"
)

// Context is the linear message list rebuilt from a root-to-leaf path,
// together with the active model. It is what a host sends to its provider.
type Context struct {
	Messages []ContextMessage
	Model    *ModelRef
}

// ContextMessage pairs a rebuilt message with the entry that produced it. The
// pairing is what lets the compaction planner translate a message boundary
// back into an entry id.
type ContextMessage struct {
	EntryID string
	Message types.Message
}

// MessageList strips the entry pairing for handing the context to a model.
func (c Context) MessageList() []types.Message {
	msgs := make([]types.Message, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = m.Message
	}
	return msgs
}

// Context rebuilds the message list for the current leaf.
func (s *Session) Context() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BuildContext(s.entries, s.leaf, s.byID)
}

// ContextWithLeaf rebuilds the context and reports the leaf it was built from,
// as one atomic snapshot. Callers planning an asynchronous mutation against
// the context pass the leaf back to the commit step to detect movement.
func (s *Session) ContextWithLeaf() (Context, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BuildContext(s.entries, s.leaf, s.byID), s.leaf
}

// BuildContext is a pure function from an entry set and a leaf to the linear
// context. Given the same inputs it produces identical output; it performs no
// I/O and keeps no state.
//
// The starting entry is the given leaf when set, else the most recently
// appended entry, else the context is empty. The path from root to start is
// scanned once for the active model (last model_change) and the last
// compaction entry. Without a compaction every message entry is emitted in
// path order, with a synthetic user message per branch_summary entry. With
// one, a synthetic user message carrying the summary comes first, followed by
// a verbatim replay from firstKeptEntryId up to the compaction entry, then
// everything after it. Entries strictly before firstKeptEntryId are
// represented only by the summary.
func BuildContext(entries []Entry, leafID string, byID map[string]Entry) Context {
	start := leafID
	if start == "" {
		if len(entries) == 0 {
			return Context{}
		}
		start = entries[len(entries)-1].Base().ID
	}
	path := pathTo(start, byID)
	if len(path) == 0 {
		return Context{}
	}

	var model *ModelRef
	lastCompaction := -1
	for i, entry := range path {
		switch e := entry.(type) {
		case ModelChangeEntry:
			model = &ModelRef{Provider: e.Provider, ModelID: e.ModelID}
		case CompactionEntry:
			lastCompaction = i
		}
	}

	var messages []ContextMessage
	if lastCompaction == -1 {
		messages = ReplayMessages(path)
	} else {
		compaction := path[lastCompaction].(CompactionEntry)
		messages = append(messages, ContextMessage{
			EntryID: compaction.ID,
			Message: compactionSummaryMessage(compaction),
		})
		if kept := indexOnPath(path[:lastCompaction], compaction.FirstKeptEntryID); kept != -1 {
			messages = append(messages, ReplayMessages(path[kept:lastCompaction])...)
		}
		messages = append(messages, ReplayMessages(path[lastCompaction+1:])...)
	}

	return Context{Messages: messages, Model: model}
}

// ReplayMessages emits one message per message entry and a synthetic user
// message per branch_summary entry, in path order. Other entry kinds produce
// nothing.
func ReplayMessages(path []Entry) []ContextMessage {
	var messages []ContextMessage
	for _, entry := range path {
		switch e := entry.(type) {
		case MessageEntry:
			messages = append(messages, ContextMessage{EntryID: e.ID, Message: e.Message})
		case BranchSummaryEntry:
			messages = append(messages, ContextMessage{EntryID: e.ID, Message: branchSummaryMessage(e)})
		}
	}
	return messages
}

func indexOnPath(path []Entry, id string) int {
	for i, entry := range path {
		if entry.Base().ID == id {
			return i
		}
	}
	return -1
}

func compactionSummaryMessage(e CompactionEntry) types.Message {
	text := fmt.Sprintf("[Conversation compacted: ~%d tokens summarized]\n\n%s",
		e.TokensBefore, e.Summary)
	return types.Message{
		Role:    types.RoleUser,
		Content: []types.ContentBlock{{Type: types.ContentTypeText, Text: text}},
	}
}

func branchSummaryMessage(e BranchSummaryEntry) types.Message {
	text := fmt.Sprintf("[Summary of an abandoned branch]\n\n%s", e.Summary)
	return types.Message{
		Role:    types.RoleUser,
		Content: []types.ContentBlock{{Type: types.ContentTypeText, Text: text}},
	}
}
