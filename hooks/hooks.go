package hooks

import (
	"context"
	"sync"

	"github.com/youssefsiam38/agentsession"
	"github.com/youssefsiam38/agentsession/compaction"
)

// EntryAppendedHook is called after an entry is appended to a session
type EntryAppendedHook func(ctx context.Context, sessionID string, entry agentsession.Entry) error

// BranchHook is called after the leaf moves to an earlier entry.
// fromID is the abandoned leaf, toID the branch target ("" for root).
type BranchHook func(ctx context.Context, sessionID, fromID, toID string) error

// CompactionStartHook is called after planning, before the summarization call
type CompactionStartHook func(ctx context.Context, sessionID string, tokensBefore int) error

// CompactionCompleteHook is called after a compaction entry was committed
type CompactionCompleteHook func(ctx context.Context, result *compaction.Result) error

// CompactionErrorHook is called when a compaction attempt fails; the session
// is untouched at that point
type CompactionErrorHook func(ctx context.Context, sessionID string, err error) error

// Registry holds all registered hooks. It implements agentsession.Observer,
// so attaching it with agentsession.WithObserver fires the entry-appended and
// branch hooks; BindCompaction wires the compaction hooks into a
// compaction.Config.
type Registry struct {
	mu                 sync.RWMutex
	entryAppended      []EntryAppendedHook
	branch             []BranchHook
	compactionStart    []CompactionStartHook
	compactionComplete []CompactionCompleteHook
	compactionError    []CompactionErrorHook
}

var _ agentsession.Observer = (*Registry)(nil)

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		entryAppended:      []EntryAppendedHook{},
		branch:             []BranchHook{},
		compactionStart:    []CompactionStartHook{},
		compactionComplete: []CompactionCompleteHook{},
		compactionError:    []CompactionErrorHook{},
	}
}

// OnEntryAppended registers a hook to be called after each append
func (r *Registry) OnEntryAppended(hook EntryAppendedHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entryAppended = append(r.entryAppended, hook)
}

// OnBranch registers a hook to be called after each leaf move
func (r *Registry) OnBranch(hook BranchHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branch = append(r.branch, hook)
}

// OnCompactionStart registers a hook to be called before summarization
func (r *Registry) OnCompactionStart(hook CompactionStartHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compactionStart = append(r.compactionStart, hook)
}

// OnCompactionComplete registers a hook to be called after a committed compaction
func (r *Registry) OnCompactionComplete(hook CompactionCompleteHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compactionComplete = append(r.compactionComplete, hook)
}

// OnCompactionError registers a hook to be called on compaction failure
func (r *Registry) OnCompactionError(hook CompactionErrorHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compactionError = append(r.compactionError, hook)
}

// BindCompaction points the config's lifecycle callbacks at the registry,
// chaining any callbacks already set (they run first). The callbacks carry no
// context and cannot propagate errors, so hooks run with a background context
// and hook errors are dropped.
func (r *Registry) BindCompaction(cfg *compaction.Config) {
	prevStart := cfg.OnCompactionStart
	cfg.OnCompactionStart = func(sessionID string, tokensBefore int) {
		if prevStart != nil {
			prevStart(sessionID, tokensBefore)
		}
		_ = r.TriggerCompactionStart(context.Background(), sessionID, tokensBefore)
	}

	prevComplete := cfg.OnCompactionComplete
	cfg.OnCompactionComplete = func(result *compaction.Result) {
		if prevComplete != nil {
			prevComplete(result)
		}
		_ = r.TriggerCompactionComplete(context.Background(), result)
	}

	prevError := cfg.OnCompactionError
	cfg.OnCompactionError = func(sessionID string, err error) {
		if prevError != nil {
			prevError(sessionID, err)
		}
		_ = r.TriggerCompactionError(context.Background(), sessionID, err)
	}
}

// TriggerEntryAppended calls all registered entry-appended hooks.
// The first hook error stops the chain and is returned.
func (r *Registry) TriggerEntryAppended(ctx context.Context, sessionID string, entry agentsession.Entry) error {
	r.mu.RLock()
	hooks := make([]EntryAppendedHook, len(r.entryAppended))
	copy(hooks, r.entryAppended)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, entry); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBranch calls all registered branch hooks
func (r *Registry) TriggerBranch(ctx context.Context, sessionID, fromID, toID string) error {
	r.mu.RLock()
	hooks := make([]BranchHook, len(r.branch))
	copy(hooks, r.branch)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, fromID, toID); err != nil {
			return err
		}
	}
	return nil
}

// TriggerCompactionStart calls all registered compaction-start hooks
func (r *Registry) TriggerCompactionStart(ctx context.Context, sessionID string, tokensBefore int) error {
	r.mu.RLock()
	hooks := make([]CompactionStartHook, len(r.compactionStart))
	copy(hooks, r.compactionStart)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, tokensBefore); err != nil {
			return err
		}
	}
	return nil
}

// TriggerCompactionComplete calls all registered compaction-complete hooks
func (r *Registry) TriggerCompactionComplete(ctx context.Context, result *compaction.Result) error {
	r.mu.RLock()
	hooks := make([]CompactionCompleteHook, len(r.compactionComplete))
	copy(hooks, r.compactionComplete)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// TriggerCompactionError calls all registered compaction-error hooks
func (r *Registry) TriggerCompactionError(ctx context.Context, sessionID string, err error) error {
	r.mu.RLock()
	hooks := make([]CompactionErrorHook, len(r.compactionError))
	copy(hooks, r.compactionError)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if hookErr := hook(ctx, sessionID, err); hookErr != nil {
			return hookErr
		}
	}
	return nil
}
