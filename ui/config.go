package ui

// DefaultPageSize bounds the session list page.
const DefaultPageSize = 50

// Config holds inspector configuration.
type Config struct {
	// BasePath is the URL prefix where the inspector is mounted.
	// For example, if mounted at "/sessions/", set BasePath to "/sessions".
	// All navigation links will be prefixed with this path.
	// Defaults to empty string (root mount).
	BasePath string

	// PageSize caps how many sessions the list page shows.
	// Defaults to 50.
	PageSize int

	// Logger for structured logging.
	// If nil, logging is disabled.
	Logger Logger
}

// Logger interface for structured logging.
// Compatible with agentsession.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		PageSize: DefaultPageSize,
	}
}

// applyDefaults fills in default values for zero-valued fields.
func (c *Config) applyDefaults() {
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// validate checks the configuration for errors.
func (c *Config) validate() error {
	if c.PageSize < 1 {
		return ErrInvalidConfig
	}
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}
