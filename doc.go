// Package agentsession persists multi-turn conversational state for LLM
// agents and keeps that state within a bounded token budget.
//
// Sessions are append-only trees of typed entries (messages, model changes,
// compaction checkpoints, branch summaries) with a single movable leaf
// cursor. Appending always creates a child of the current leaf and advances
// the leaf; branching only moves the cursor, so no history is ever lost. The
// context builder turns the root-to-leaf path back into the linear message
// list a host sends to its model.
//
// # Quick Start
//
// Create a session backed by a JSONL file and append a conversation:
//
//	session, err := agentsession.Open(ctx, "chats/demo.jsonl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	session.AppendMessage(ctx, agentsession.NewUserMessage("Hi there"))
//	session.AppendMessage(ctx, agentsession.NewAssistantMessage(
//	    []agentsession.ContentBlock{agentsession.NewTextBlock("Hello!")},
//	))
//
//	context := session.Context()
//	// context.MessageList() goes to the model provider.
//
// Nothing is written to disk until the first message append, so sessions
// that never receive a real message never create files.
//
// # Branching
//
// The leaf can be moved to any existing entry; subsequent appends fork from
// that point while the original continuation stays retrievable through
// Entry, Entries, and Tree:
//
//	session.Branch(earlierEntryID)
//	session.AppendMessage(ctx, agentsession.NewUserMessage("Try it differently"))
//
// BranchWithSummary additionally records a summary of the abandoned path,
// which rebuilt contexts carry forward as a synthetic user message.
//
// # Compaction
//
// The compaction package watches the estimated token size of the current
// context and, past a threshold, replaces older history with a
// model-generated summary appended as a compaction entry:
//
//	compactor, err := compaction.New(session, anthropicClient, compaction.Config{
//	    ContextWindow: 200000,
//	    Mode:          compaction.ModeAuto,
//	})
//	result, err := compactor.CompactIfNeeded(ctx)
//
// The full history remains in the tree; only the context sent to the model
// shrinks.
//
// # Persistence
//
// Sessions persist as newline-delimited JSON through the storage package:
// plain files, Postgres via pgx, or any database/sql driver. Loading skips
// malformed lines and treats a corrupt header as an empty session.
package agentsession
