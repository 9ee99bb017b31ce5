package compaction

import (
	"fmt"

	"github.com/youssefsiam38/agentsession"
)

// Mode controls when compaction runs.
type Mode string

const (
	// ModeAuto compacts whenever CompactIfNeeded finds the context over
	// threshold. Hosts call CompactIfNeeded after each completed turn.
	ModeAuto Mode = "auto"

	// ModeManual compacts only on explicit Compact calls; CompactIfNeeded
	// becomes a no-op.
	ModeManual Mode = "manual"
)

// Default configuration values.
const (
	DefaultMode             = ModeAuto
	DefaultModel            = "claude-3-5-haiku-20241022" // fast, cheap model for summaries
	DefaultMaxSummaryTokens = 4096
	DefaultReserveTokens    = 16384 // headroom for the next response
	DefaultKeepRecentTokens = 20000 // recent context that survives verbatim
)

// Settings tunes the compaction thresholds shared by the estimator and the
// planner.
type Settings struct {
	// Enabled turns threshold checks on. A zero-value Settings defaults to
	// enabled; set any field explicitly to take full control.
	// Default: true
	Enabled bool

	// ReserveTokens is the headroom kept free below the context window;
	// compaction triggers once the estimated context exceeds
	// contextWindow - ReserveTokens.
	// Default: 16384
	ReserveTokens int

	// KeepRecentTokens is how much of the recent path survives compaction
	// verbatim. The cut point is placed so at least this much stays.
	// Default: 20000
	KeepRecentTokens int
}

// DefaultSettings returns enabled settings with default thresholds.
func DefaultSettings() Settings {
	return Settings{
		Enabled:          true,
		ReserveTokens:    DefaultReserveTokens,
		KeepRecentTokens: DefaultKeepRecentTokens,
	}
}

// Config holds compaction configuration.
type Config struct {
	// ContextWindow is the target model's context window in tokens.
	// Default: looked up from agentsession.KnownModels for Model
	ContextWindow int

	// Mode controls whether CompactIfNeeded may compact.
	// Default: ModeAuto
	Mode Mode

	// Model is the model used for summarization.
	// Default: "claude-3-5-haiku-20241022"
	Model string

	// MaxSummaryTokens caps the summarization response length.
	// Default: 4096
	MaxSummaryTokens int

	// Settings tunes when compaction triggers and how much recent context
	// is kept verbatim.
	Settings Settings

	// OnCompactionStart fires after planning, before the summarization
	// call. Optional.
	OnCompactionStart func(sessionID string, tokensBefore int)

	// OnCompactionComplete fires after a compaction entry was committed.
	// Optional.
	OnCompactionComplete func(result *Result)

	// OnCompactionError fires when a compaction attempt fails or is
	// cancelled. The session is untouched at that point. Optional.
	OnCompactionError func(sessionID string, err error)

	// Logger for compaction logging.
	// Default: no-op
	Logger Logger
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = agentsession.GetModelInfo(c.Model).MaxContextTokens
	}
	if c.MaxSummaryTokens == 0 {
		c.MaxSummaryTokens = DefaultMaxSummaryTokens
	}
	if c.Settings == (Settings{}) {
		c.Settings = DefaultSettings()
	} else {
		if c.Settings.ReserveTokens == 0 {
			c.Settings.ReserveTokens = DefaultReserveTokens
		}
		if c.Settings.KeepRecentTokens == 0 {
			c.Settings.KeepRecentTokens = DefaultKeepRecentTokens
		}
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Mode != ModeAuto && c.Mode != ModeManual {
		return fmt.Errorf("%w: unknown mode %q, must be %q or %q",
			ErrInvalidConfig, c.Mode, ModeAuto, ModeManual)
	}

	if c.ContextWindow <= 0 {
		return fmt.Errorf("%w: context_window must be positive, got %d", ErrInvalidConfig, c.ContextWindow)
	}

	if c.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}

	if c.MaxSummaryTokens <= 0 {
		return fmt.Errorf("%w: max_summary_tokens must be positive, got %d", ErrInvalidConfig, c.MaxSummaryTokens)
	}

	if c.Settings.ReserveTokens < 0 {
		return fmt.Errorf("%w: reserve_tokens must be non-negative, got %d", ErrInvalidConfig, c.Settings.ReserveTokens)
	}

	if c.Settings.KeepRecentTokens <= 0 {
		return fmt.Errorf("%w: keep_recent_tokens must be positive, got %d", ErrInvalidConfig, c.Settings.KeepRecentTokens)
	}

	if c.Settings.ReserveTokens >= c.ContextWindow {
		return fmt.Errorf("%w: reserve_tokens (%d) must be less than context_window (%d)",
			ErrInvalidConfig, c.Settings.ReserveTokens, c.ContextWindow)
	}

	return nil
}
