package hooks

import (
	"context"
	"log"

	"github.com/youssefsiam38/agentsession"
	"github.com/youssefsiam38/agentsession/compaction"
)

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// Register attaches every logging hook to the registry.
func (h *LoggingHooks) Register(r *Registry) {
	r.OnEntryAppended(h.EntryAppended)
	r.OnBranch(h.Branch)
	r.OnCompactionStart(h.CompactionStart)
	r.OnCompactionComplete(h.CompactionComplete)
	r.OnCompactionError(h.CompactionError)
}

// EntryAppended logs each appended entry
func (h *LoggingHooks) EntryAppended(ctx context.Context, sessionID string, entry agentsession.Entry) error {
	base := entry.Base()
	h.logger.Printf("[AgentSession] Appended %s entry %s to session %s", base.Type, base.ID, sessionID)
	return nil
}

// Branch logs leaf moves
func (h *LoggingHooks) Branch(ctx context.Context, sessionID, fromID, toID string) error {
	if toID == "" {
		toID = "root"
	}
	h.logger.Printf("[AgentSession] Session %s branched from %s to %s", sessionID, fromID, toID)
	return nil
}

// CompactionStart logs the beginning of a compaction attempt
func (h *LoggingHooks) CompactionStart(ctx context.Context, sessionID string, tokensBefore int) error {
	h.logger.Printf("[AgentSession] Starting compaction for session %s (~%d tokens)", sessionID, tokensBefore)
	return nil
}

// CompactionComplete logs a committed compaction
func (h *LoggingHooks) CompactionComplete(ctx context.Context, result *compaction.Result) error {
	reduction := float64(0)
	if result.TokensBefore > 0 {
		reduction = float64(result.TokensBefore-result.TokensAfter) / float64(result.TokensBefore) * 100
	}
	h.logger.Printf("[AgentSession] Compaction complete: %d -> %d tokens (%.1f%% reduction, kept from %s, took %v)",
		result.TokensBefore, result.TokensAfter, reduction, result.FirstKeptEntryID, result.Duration)
	return nil
}

// CompactionError logs a failed compaction attempt
func (h *LoggingHooks) CompactionError(ctx context.Context, sessionID string, err error) error {
	h.logger.Printf("[AgentSession] Compaction failed for session %s: %v", sessionID, err)
	return nil
}

// MetricsHooks collects metrics for monitoring
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// Register attaches every metrics hook to the registry.
func (h *MetricsHooks) Register(r *Registry) {
	r.OnEntryAppended(h.EntryAppended)
	r.OnCompactionComplete(h.CompactionComplete)
	r.OnCompactionError(h.CompactionError)
}

// EntryAppended counts appended entries by type
func (h *MetricsHooks) EntryAppended(ctx context.Context, sessionID string, entry agentsession.Entry) error {
	h.OnMetric("session.entries.appended", 1, map[string]string{"type": entry.Base().Type.String()})
	return nil
}

// CompactionComplete records compaction outcome metrics
func (h *MetricsHooks) CompactionComplete(ctx context.Context, result *compaction.Result) error {
	h.OnMetric("session.compaction.tokens_before", float64(result.TokensBefore), nil)
	h.OnMetric("session.compaction.tokens_after", float64(result.TokensAfter), nil)
	h.OnMetric("session.compaction.duration_ms", float64(result.Duration.Milliseconds()), nil)

	if result.TokensBefore > 0 {
		h.OnMetric("session.compaction.reduction_pct",
			float64(result.TokensBefore-result.TokensAfter)/float64(result.TokensBefore)*100, nil)
	}
	return nil
}

// CompactionError counts failed compaction attempts
func (h *MetricsHooks) CompactionError(ctx context.Context, sessionID string, err error) error {
	h.OnMetric("session.compaction.errors", 1, nil)
	return nil
}
