package compaction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/youssefsiam38/agentsession"
)

// fakeProvider is a SummaryProvider double. onSummarize, when set, runs
// before the canned response is returned, standing in for whatever happens
// while a real model call is in flight.
type fakeProvider struct {
	summary     string
	err         error
	calls       int
	transcript  string
	onSummarize func()
}

func (f *fakeProvider) Summarize(ctx context.Context, transcript string, opts ...option.RequestOption) (string, error) {
	f.calls++
	f.transcript = transcript
	if f.onSummarize != nil {
		f.onSummarize()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func (f *fakeProvider) SummarizeBranch(ctx context.Context, transcript string, opts ...option.RequestOption) (string, error) {
	return f.Summarize(ctx, transcript, opts...)
}

func newTestCompactor(t *testing.T, session *agentsession.Session, provider SummaryProvider, cfg Config) *Compactor {
	t.Helper()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return &Compactor{
		session:    session,
		config:     cfg,
		summarizer: provider,
		logger:     cfg.Logger,
	}
}

// seedTurns appends n user/assistant turns of roughly tokensPerMessage each.
func seedTurns(t *testing.T, session *agentsession.Session, n, tokensPerMessage int) {
	t.Helper()
	ctx := context.Background()
	filler := strings.Repeat("x", tokensPerMessage*charsPerToken)
	for i := 0; i < n; i++ {
		if _, err := session.AppendMessage(ctx, agentsession.NewUserMessage(filler)); err != nil {
			t.Fatalf("AppendMessage returned error: %v", err)
		}
		if _, err := session.AppendMessage(ctx, agentsession.NewAssistantMessage(
			[]agentsession.ContentBlock{agentsession.NewTextBlock(filler)},
		)); err != nil {
			t.Fatalf("AppendMessage returned error: %v", err)
		}
	}
}

func TestNewValidation(t *testing.T) {
	session, _ := agentsession.New()
	client := anthropic.NewClient(option.WithAPIKey("test-key"))

	if _, err := New(nil, &client, Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil session, got %v", err)
	}
	if _, err := New(session, nil, Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil client, got %v", err)
	}
	if _, err := New(session, &client, Config{Mode: "sometimes"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for bad mode, got %v", err)
	}
	if _, err := New(session, &client, Config{}); err != nil {
		t.Errorf("expected defaults to produce a valid compactor, got %v", err)
	}
}

func TestCompactShrinksTokens(t *testing.T) {
	ctx := context.Background()
	session, _ := agentsession.New()
	seedTurns(t, session, 10, 100) // ~2000 tokens

	provider := &fakeProvider{summary: "the condensed history"}
	compactor := newTestCompactor(t, session, provider, Config{
		ContextWindow: 2100,
		Settings:      Settings{Enabled: true, ReserveTokens: 500, KeepRecentTokens: 300},
	})

	before := EstimateContextTokens(session.Context().MessageList())

	result, err := compactor.Compact(ctx)
	if err != nil {
		t.Fatalf("Compact returned error: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result, got nil")
	}
	if result.TokensBefore != before {
		t.Errorf("expected tokensBefore %d, got %d", before, result.TokensBefore)
	}
	if result.TokensAfter >= result.TokensBefore {
		t.Errorf("compaction did not shrink tokens: %d -> %d", result.TokensBefore, result.TokensAfter)
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 summarization call, got %d", provider.calls)
	}

	// The rebuilt context starts with the synthetic summary and replays the
	// kept tail verbatim from firstKeptEntryId.
	rebuilt := session.Context()
	if len(rebuilt.Messages) == 0 {
		t.Fatal("rebuilt context is empty")
	}
	if !strings.Contains(rebuilt.Messages[0].Message.Text(), "the condensed history") {
		t.Errorf("rebuilt context missing the summary: %q", rebuilt.Messages[0].Message.Text())
	}
	if rebuilt.Messages[1].EntryID != result.FirstKeptEntryID {
		t.Errorf("expected replay to resume at %q, got %q",
			result.FirstKeptEntryID, rebuilt.Messages[1].EntryID)
	}

	// The unabridged history is still in the tree.
	entry, ok := session.Entry(result.EntryID)
	if !ok {
		t.Fatal("compaction entry missing from the tree")
	}
	ce, ok := entry.(agentsession.CompactionEntry)
	if !ok {
		t.Fatalf("expected CompactionEntry, got %T", entry)
	}
	if ce.Summary != "the condensed history" {
		t.Errorf("unexpected stored summary %q", ce.Summary)
	}
}

func TestCompactNothingToDo(t *testing.T) {
	session, _ := agentsession.New()
	session.AppendMessage(context.Background(), agentsession.NewUserMessage("tiny"))

	provider := &fakeProvider{summary: "unused"}
	compactor := newTestCompactor(t, session, provider, Config{
		ContextWindow: 10000,
		Settings:      Settings{Enabled: true, ReserveTokens: 100, KeepRecentTokens: 1000},
	})

	result, err := compactor.Compact(context.Background())
	if err != nil {
		t.Fatalf("Compact returned error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result below threshold, got %+v", result)
	}
	if provider.calls != 0 {
		t.Errorf("expected no summarization call, got %d", provider.calls)
	}
}

func TestCompactFailureIsSideEffectFree(t *testing.T) {
	ctx := context.Background()
	session, _ := agentsession.New()
	seedTurns(t, session, 10, 100)

	var callbackErr error
	provider := &fakeProvider{err: errors.New("model unavailable")}
	compactor := newTestCompactor(t, session, provider, Config{
		ContextWindow: 2100,
		Settings:      Settings{Enabled: true, ReserveTokens: 500, KeepRecentTokens: 300},
		OnCompactionError: func(sessionID string, err error) {
			callbackErr = err
		},
	})

	entriesBefore := session.EntryCount()
	leafBefore := session.Leaf()

	result, err := compactor.Compact(ctx)
	if err == nil {
		t.Fatal("expected an error")
	}
	if result != nil {
		t.Errorf("expected nil result on failure, got %+v", result)
	}
	if callbackErr == nil {
		t.Error("error callback did not fire")
	}
	if session.EntryCount() != entriesBefore {
		t.Errorf("failed compaction appended entries: %d -> %d", entriesBefore, session.EntryCount())
	}
	if session.Leaf() != leafBefore {
		t.Errorf("failed compaction moved the leaf: %q -> %q", leafBefore, session.Leaf())
	}
}

func TestCompactRejectsStalePlan(t *testing.T) {
	ctx := context.Background()
	session, _ := agentsession.New()
	seedTurns(t, session, 10, 100)

	provider := &fakeProvider{summary: "stale"}
	// While the summarization call is in flight, the branch moves.
	provider.onSummarize = func() {
		session.AppendMessage(ctx, agentsession.NewUserMessage("raced in"))
	}
	compactor := newTestCompactor(t, session, provider, Config{
		ContextWindow: 2100,
		Settings:      Settings{Enabled: true, ReserveTokens: 500, KeepRecentTokens: 300},
	})

	_, err := compactor.Compact(ctx)
	if !errors.Is(err, agentsession.ErrLeafMoved) {
		t.Fatalf("expected ErrLeafMoved, got %v", err)
	}

	// The raced-in message survives; no compaction entry was committed.
	for _, entry := range session.Entries() {
		if _, ok := entry.(agentsession.CompactionEntry); ok {
			t.Error("stale compaction entry was committed")
		}
	}
}

func TestCompactInFlightGuard(t *testing.T) {
	ctx := context.Background()
	session, _ := agentsession.New()
	seedTurns(t, session, 10, 100)

	started := make(chan struct{})
	release := make(chan struct{})
	provider := &fakeProvider{summary: "slow"}
	provider.onSummarize = func() {
		close(started)
		<-release
	}
	compactor := newTestCompactor(t, session, provider, Config{
		ContextWindow: 2100,
		Settings:      Settings{Enabled: true, ReserveTokens: 500, KeepRecentTokens: 300},
	})

	done := make(chan error, 1)
	go func() {
		_, err := compactor.Compact(ctx)
		done <- err
	}()

	<-started
	_, err := compactor.Compact(ctx)
	if !errors.Is(err, ErrCompactionInProgress) {
		t.Errorf("expected ErrCompactionInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first compaction failed: %v", err)
	}
}

func TestCompactIfNeeded(t *testing.T) {
	ctx := context.Background()

	t.Run("manual mode never compacts", func(t *testing.T) {
		session, _ := agentsession.New()
		seedTurns(t, session, 10, 100)
		provider := &fakeProvider{summary: "unused"}
		compactor := newTestCompactor(t, session, provider, Config{
			Mode:          ModeManual,
			ContextWindow: 2100,
			Settings:      Settings{Enabled: true, ReserveTokens: 500, KeepRecentTokens: 300},
		})

		result, err := compactor.CompactIfNeeded(ctx)
		if err != nil || result != nil {
			t.Errorf("expected (nil, nil) in manual mode, got (%+v, %v)", result, err)
		}
		if provider.calls != 0 {
			t.Errorf("manual mode made %d summarization calls", provider.calls)
		}
	})

	t.Run("auto mode below threshold is a no-op", func(t *testing.T) {
		session, _ := agentsession.New()
		seedTurns(t, session, 2, 10)
		provider := &fakeProvider{summary: "unused"}
		compactor := newTestCompactor(t, session, provider, Config{
			ContextWindow: 100000,
			Settings:      Settings{Enabled: true, ReserveTokens: 100, KeepRecentTokens: 100},
		})

		result, err := compactor.CompactIfNeeded(ctx)
		if err != nil || result != nil {
			t.Errorf("expected (nil, nil) below threshold, got (%+v, %v)", result, err)
		}
	})

	t.Run("auto mode over threshold compacts", func(t *testing.T) {
		session, _ := agentsession.New()
		seedTurns(t, session, 10, 100)
		provider := &fakeProvider{summary: "auto summary"}
		compactor := newTestCompactor(t, session, provider, Config{
			ContextWindow: 2100,
			Settings:      Settings{Enabled: true, ReserveTokens: 500, KeepRecentTokens: 300},
		})

		result, err := compactor.CompactIfNeeded(ctx)
		if err != nil {
			t.Fatalf("CompactIfNeeded returned error: %v", err)
		}
		if result == nil {
			t.Fatal("expected a result over threshold")
		}
	})
}

func TestCompactCallbacks(t *testing.T) {
	ctx := context.Background()
	session, _ := agentsession.New()
	seedTurns(t, session, 10, 100)

	var startTokens int
	var completed *Result
	provider := &fakeProvider{summary: "done"}
	compactor := newTestCompactor(t, session, provider, Config{
		ContextWindow: 2100,
		Settings:      Settings{Enabled: true, ReserveTokens: 500, KeepRecentTokens: 300},
		OnCompactionStart: func(sessionID string, tokensBefore int) {
			startTokens = tokensBefore
		},
		OnCompactionComplete: func(result *Result) {
			completed = result
		},
	})

	result, err := compactor.Compact(ctx)
	if err != nil {
		t.Fatalf("Compact returned error: %v", err)
	}
	if startTokens != result.TokensBefore {
		t.Errorf("start callback saw %d tokens, result says %d", startTokens, result.TokensBefore)
	}
	if completed == nil || completed.EntryID != result.EntryID {
		t.Errorf("complete callback got %+v, want entry %q", completed, result.EntryID)
	}
}

func TestBranchWithSummary(t *testing.T) {
	ctx := context.Background()
	session, _ := agentsession.New()

	target, _ := session.AppendMessage(ctx, agentsession.NewUserMessage("keep this"))
	session.AppendMessage(ctx, agentsession.NewAssistantMessage(
		[]agentsession.ContentBlock{agentsession.NewTextBlock("abandoned answer")},
	))

	provider := &fakeProvider{summary: "went nowhere"}
	compactor := newTestCompactor(t, session, provider, Config{ContextWindow: 100000})

	id, err := compactor.BranchWithSummary(ctx, target)
	if err != nil {
		t.Fatalf("BranchWithSummary returned error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a branch summary entry id")
	}
	if !strings.Contains(provider.transcript, "abandoned answer") {
		t.Errorf("transcript missing the abandoned message: %q", provider.transcript)
	}

	entry, _ := session.Entry(id)
	bs, ok := entry.(agentsession.BranchSummaryEntry)
	if !ok {
		t.Fatalf("expected BranchSummaryEntry, got %T", entry)
	}
	if bs.Summary != "went nowhere" {
		t.Errorf("unexpected summary %q", bs.Summary)
	}
	if session.Leaf() != id {
		t.Errorf("expected leaf on the summary entry, got %q", session.Leaf())
	}
}

func TestBranchWithSummaryNothingAbandoned(t *testing.T) {
	ctx := context.Background()
	session, _ := agentsession.New()
	target, _ := session.AppendMessage(ctx, agentsession.NewUserMessage("tip"))

	provider := &fakeProvider{summary: "unused"}
	compactor := newTestCompactor(t, session, provider, Config{ContextWindow: 100000})

	// Branching to the current leaf abandons nothing; no model call is spent.
	id, err := compactor.BranchWithSummary(ctx, target)
	if err != nil {
		t.Fatalf("BranchWithSummary returned error: %v", err)
	}
	if id != "" {
		t.Errorf("expected no summary entry, got %q", id)
	}
	if provider.calls != 0 {
		t.Errorf("expected no summarization calls, got %d", provider.calls)
	}
	if session.Leaf() != target {
		t.Errorf("expected leaf %q, got %q", target, session.Leaf())
	}
}

func TestBranchWithSummaryRejectsStaleLeaf(t *testing.T) {
	ctx := context.Background()
	session, _ := agentsession.New()

	target, _ := session.AppendMessage(ctx, agentsession.NewUserMessage("keep this"))
	session.AppendMessage(ctx, agentsession.NewAssistantMessage(
		[]agentsession.ContentBlock{agentsession.NewTextBlock("abandoned answer")},
	))

	provider := &fakeProvider{summary: "stale"}
	// While the summarization call is in flight, another message lands.
	var raced string
	provider.onSummarize = func() {
		raced, _ = session.AppendMessage(ctx, agentsession.NewUserMessage("raced in"))
	}
	compactor := newTestCompactor(t, session, provider, Config{ContextWindow: 100000})

	_, err := compactor.BranchWithSummary(ctx, target)
	if !errors.Is(err, agentsession.ErrLeafMoved) {
		t.Fatalf("expected ErrLeafMoved, got %v", err)
	}

	// The raced-in message stays on the live branch; no summary entry was
	// committed and the leaf did not move.
	for _, entry := range session.Entries() {
		if _, ok := entry.(agentsession.BranchSummaryEntry); ok {
			t.Error("stale branch summary was committed")
		}
	}
	if session.Leaf() != raced {
		t.Errorf("expected leaf %q, got %q", raced, session.Leaf())
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	session, _ := agentsession.New()
	seedTurns(t, session, 10, 100)

	provider := &fakeProvider{summary: "counted"}
	compactor := newTestCompactor(t, session, provider, Config{
		ContextWindow: 2100,
		Settings:      Settings{Enabled: true, ReserveTokens: 500, KeepRecentTokens: 300},
	})

	stats := compactor.Stats()
	if stats.SessionID != session.ID() {
		t.Errorf("expected session id %q, got %q", session.ID(), stats.SessionID)
	}
	if !stats.NeedsCompaction {
		t.Error("expected NeedsCompaction=true for an oversized context")
	}
	if stats.CompactionCount != 0 {
		t.Errorf("expected 0 compactions, got %d", stats.CompactionCount)
	}

	if _, err := compactor.Compact(ctx); err != nil {
		t.Fatalf("Compact returned error: %v", err)
	}

	stats = compactor.Stats()
	if stats.CompactionCount != 1 {
		t.Errorf("expected 1 compaction, got %d", stats.CompactionCount)
	}
	if stats.ContextTokens >= stats.ContextWindow {
		t.Errorf("expected shrunken context, got %d tokens in a %d window",
			stats.ContextTokens, stats.ContextWindow)
	}
}
