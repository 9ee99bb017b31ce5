// Package compaction keeps a session's rebuilt context within a token budget.
//
// When conversations grow too long, they can exceed the model's context
// window. This package estimates context size, finds a turn-safe cut point in
// older history, and replaces everything before that point with a generated
// summary, committed as a compaction entry on the session.
//
// # Usage
//
// Create a Compactor for a session:
//
//	compactor, err := compaction.New(session, &client, compaction.Config{
//	    ContextWindow: 200000,
//	    Mode:          compaction.ModeAuto,
//	    Settings: compaction.Settings{
//	        Enabled:          true,
//	        ReserveTokens:    16384, // trigger this close to the window
//	        KeepRecentTokens: 20000, // keep at least this much verbatim
//	    },
//	})
//
// After each completed turn, let it decide:
//
//	result, err := compactor.CompactIfNeeded(ctx)
//	if err != nil {
//	    return err
//	}
//	if result != nil {
//	    log.Printf("compacted: %d -> %d tokens", result.TokensBefore, result.TokensAfter)
//	}
//
// In manual mode CompactIfNeeded never fires; call Compact directly instead.
//
// # Planning
//
// The planner walks the context backward until the kept tail covers
// KeepRecentTokens, then snaps the cut to the start of the turn containing
// that point so an assistant/tool exchange is never separated from its user
// message. A turn whose own leading portion exceeds the kept budget is split
// instead, with the head carried into the summarization prompt verbatim.
// Along the way the planner records which files the summarized-away tool
// calls read and modified, so the summary can name them without replaying
// their content.
//
// # Token Counting
//
// Token costs are character-based estimates (~4 characters per token),
// deliberately biased toward overestimation so compaction triggers early
// rather than risking an oversized request.
//
// # Summarization
//
// Summaries come from Claude via the streaming API. The model sees a flat
// role-tagged transcript of the messages being replaced plus the file lists,
// and answers with a structured 9-section summary. Branch summaries use the
// same path with a shorter prose prompt.
//
// # Failure Model
//
// A failed or cancelled summarization never touches the session: no entry is
// appended, the leaf stays put, and the error is reported through
// OnCompactionError. If appends land while a summarization call is in
// flight, the stale plan is discarded with ErrLeafMoved instead of being
// committed onto the wrong branch. One attempt may be in flight per session
// at a time; concurrent calls fail with ErrCompactionInProgress.
package compaction
