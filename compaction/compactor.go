package compaction

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/youssefsiam38/agentsession"
)

// Compactor drives compaction for one session: it snapshots the context,
// plans a cut point, calls the summarization model, and commits the resulting
// compaction entry. One Compactor serves one Session.
type Compactor struct {
	session    *agentsession.Session
	config     Config
	summarizer SummaryProvider
	logger     Logger

	inFlight atomic.Bool
}

// New creates a Compactor for the session. Zero config fields take their
// defaults; an invalid config is a loud error, never a silent no-op.
func New(session *agentsession.Session, client *anthropic.Client, cfg Config) (*Compactor, error) {
	if session == nil {
		return nil, NewCompactionError("New", ErrInvalidConfig).
			WithContext("reason", "session is nil")
	}
	if client == nil {
		return nil, NewCompactionError("New", ErrInvalidConfig).
			WithContext("reason", "client is nil")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Compactor{
		session:    session,
		config:     cfg,
		summarizer: NewSummarizer(client, cfg.Model, cfg.MaxSummaryTokens),
		logger:     cfg.Logger,
	}, nil
}

// Result describes one committed compaction.
type Result struct {
	// EntryID is the id of the committed compaction entry.
	EntryID string

	// Summary is the generated summary text.
	Summary string

	// FirstKeptEntryID is the boundary entry replay resumes from.
	FirstKeptEntryID string

	// TokensBefore and TokensAfter are the estimated context sizes around
	// the compaction.
	TokensBefore int
	TokensAfter  int

	// Duration covers planning through commit.
	Duration time.Duration
}

// Compact plans and performs one compaction, regardless of mode or trigger
// threshold. It returns (nil, nil) when nothing is old enough to cut.
//
// The summarization call runs without holding the session, so appends may
// land while it is in flight; a compaction planned against a leaf that moved
// is discarded with ErrLeafMoved rather than committed onto the wrong branch.
// Failures of any kind leave the session untouched. Request options are
// forwarded to the provider unchanged.
func (c *Compactor) Compact(ctx context.Context, opts ...option.RequestOption) (*Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, WrapErrorWithSession("Compact", c.session.ID(), ErrCompactionInProgress)
	}
	defer c.inFlight.Store(false)

	start := time.Now()
	snapshot, leaf := c.session.ContextWithLeaf()

	prep := Prepare(snapshot.Messages, c.config.Settings)
	if prep == nil {
		c.logger.Debug("nothing to compact", "session", c.session.ID())
		return nil, nil
	}

	c.logger.Info("compaction started",
		"session", c.session.ID(),
		"tokensBefore", prep.TokensBefore,
		"firstKept", prep.FirstKeptEntryID,
		"splitTurn", prep.IsSplitTurn)
	if c.config.OnCompactionStart != nil {
		c.config.OnCompactionStart(c.session.ID(), prep.TokensBefore)
	}

	summary, err := c.summarizer.Summarize(ctx, SerializeTranscript(prep), opts...)
	if err != nil {
		return nil, c.fail("Compact", err)
	}

	entryID, err := c.session.AppendCompactionAt(ctx, leaf, summary,
		prep.FirstKeptEntryID, prep.TokensBefore, summaryDetails(prep.FileOps))
	if err != nil {
		return nil, c.fail("Compact", err)
	}

	result := &Result{
		EntryID:          entryID,
		Summary:          summary,
		FirstKeptEntryID: prep.FirstKeptEntryID,
		TokensBefore:     prep.TokensBefore,
		TokensAfter:      EstimateContextTokens(c.session.Context().MessageList()),
		Duration:         time.Since(start),
	}
	c.logger.Info("compaction complete",
		"session", c.session.ID(),
		"entry", result.EntryID,
		"tokensBefore", result.TokensBefore,
		"tokensAfter", result.TokensAfter,
		"duration", result.Duration)
	if c.config.OnCompactionComplete != nil {
		c.config.OnCompactionComplete(result)
	}
	return result, nil
}

// CompactIfNeeded compacts only when the mode is auto and the estimated
// context exceeds the trigger threshold. Hosts call it after each completed
// turn; in manual mode it never compacts.
func (c *Compactor) CompactIfNeeded(ctx context.Context, opts ...option.RequestOption) (*Result, error) {
	if c.config.Mode != ModeAuto {
		return nil, nil
	}
	if !c.NeedsCompaction() {
		return nil, nil
	}
	return c.Compact(ctx, opts...)
}

// NeedsCompaction reports whether the estimated context size currently
// exceeds the trigger threshold.
func (c *Compactor) NeedsCompaction() bool {
	tokens := EstimateContextTokens(c.session.Context().MessageList())
	return ShouldCompact(tokens, c.config.ContextWindow, c.config.Settings)
}

// BranchWithSummary summarizes the history being abandoned, then moves the
// leaf to entryID and commits a branch_summary entry there. When the
// abandoned range contains no messages the leaf moves without a summary
// entry and the returned id is empty; summarizing nothing is not worth a
// model call. Shares the in-flight guard with Compact, and like Compact a
// summary planned against a leaf that moved mid-call is discarded with
// ErrLeafMoved instead of sweeping unsummarized entries into the abandoned
// range.
func (c *Compactor) BranchWithSummary(ctx context.Context, entryID string, opts ...option.RequestOption) (string, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return "", WrapErrorWithSession("BranchWithSummary", c.session.ID(), ErrCompactionInProgress)
	}
	defer c.inFlight.Store(false)

	abandoned, leaf, err := c.collectAbandoned(entryID)
	if err != nil {
		return "", err
	}
	messages := agentsession.ReplayMessages(abandoned)
	if len(messages) == 0 {
		if err := c.session.Branch(entryID); err != nil {
			return "", err
		}
		return "", nil
	}

	fileOps := collectFileOps(messages)
	transcript := SerializeMessages(messages)
	readFiles, modifiedFiles := ComputeFileLists(fileOps)
	if block := RenderFileLists(readFiles, modifiedFiles); block != "" {
		transcript += "\n\n" + block
	}

	summary, err := c.summarizer.SummarizeBranch(ctx, transcript, opts...)
	if err != nil {
		return "", c.fail("BranchWithSummary", err)
	}

	id, err := c.session.BranchWithSummaryAt(ctx, leaf, entryID, summary, summaryDetails(fileOps))
	if err != nil {
		return "", c.fail("BranchWithSummary", err)
	}
	c.logger.Info("branch summarized",
		"session", c.session.ID(), "entry", id, "from", entryID, "abandoned", len(abandoned))
	return id, nil
}

// collectAbandoned returns the entries on the current leaf path that fall
// after the fork point with the branch target, plus the leaf the range was
// computed against (for the commit-time staleness check). For a rewind onto
// an ancestor this is everything between the target (exclusive) and the leaf
// (inclusive).
func (c *Compactor) collectAbandoned(entryID string) ([]agentsession.Entry, string, error) {
	leafPath, err := c.session.BranchEntries("")
	if err != nil {
		return nil, "", err
	}
	leaf := ""
	if len(leafPath) > 0 {
		leaf = leafPath[len(leafPath)-1].Base().ID
	}
	if entryID == "" {
		return leafPath, leaf, nil
	}
	targetPath, err := c.session.BranchEntries(entryID)
	if err != nil {
		return nil, "", err
	}
	shared := 0
	for shared < len(leafPath) && shared < len(targetPath) &&
		leafPath[shared].Base().ID == targetPath[shared].Base().ID {
		shared++
	}
	return leafPath[shared:], leaf, nil
}

// Stats is a point-in-time view of a session's context budget.
type Stats struct {
	SessionID       string
	ContextTokens   int
	ContextWindow   int
	UsageRatio      float64
	MessageCount    int
	CompactionCount int
	NeedsCompaction bool
}

// Stats reports the session's current context usage. CompactionCount counts
// compaction entries across the whole session, so it survives reloads.
func (c *Compactor) Stats() *Stats {
	snapshot := c.session.Context()
	tokens := EstimateContextTokens(snapshot.MessageList())

	compactions := 0
	for _, entry := range c.session.Entries() {
		if _, ok := entry.(agentsession.CompactionEntry); ok {
			compactions++
		}
	}

	return &Stats{
		SessionID:       c.session.ID(),
		ContextTokens:   tokens,
		ContextWindow:   c.config.ContextWindow,
		UsageRatio:      float64(tokens) / float64(c.config.ContextWindow),
		MessageCount:    len(snapshot.Messages),
		CompactionCount: compactions,
		NeedsCompaction: ShouldCompact(tokens, c.config.ContextWindow, c.config.Settings),
	}
}

// fail reports a failed attempt through the log and error callback. The
// session is untouched at this point.
func (c *Compactor) fail(op string, err error) error {
	wrapped := WrapErrorWithSession(op, c.session.ID(), err)
	c.logger.Error("compaction failed", "session", c.session.ID(), "op", op, "error", err)
	if c.config.OnCompactionError != nil {
		c.config.OnCompactionError(c.session.ID(), wrapped)
	}
	return wrapped
}

// summaryDetails converts observed file operations into the details stored on
// a summary-bearing entry. Returns nil when no files were touched.
func summaryDetails(ops []FileOp) *agentsession.SummaryDetails {
	readFiles, modifiedFiles := ComputeFileLists(ops)
	if len(readFiles) == 0 && len(modifiedFiles) == 0 {
		return nil
	}
	return &agentsession.SummaryDetails{
		ReadFiles:     readFiles,
		ModifiedFiles: modifiedFiles,
	}
}
