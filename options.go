package agentsession

import (
	"context"

	"github.com/youssefsiam38/agentsession/storage"
)

// Option is a functional option for configuring a Session
type Option func(*sessionConfig) error

// Observer receives notifications after session mutations commit. It is
// satisfied by *hooks.Registry. Notifications run outside the session lock,
// so an observer may call back into the session; a returned error is logged
// and the committed mutation stands.
type Observer interface {
	TriggerEntryAppended(ctx context.Context, sessionID string, entry Entry) error
	TriggerBranch(ctx context.Context, sessionID, fromID, toID string) error
}

// sessionConfig collects constructor options before the Session is built.
type sessionConfig struct {
	id            string
	cwd           string
	parentSession string
	log           storage.Log
	logger        Logger
	observer      Observer
}

// WithID sets an explicit session ID instead of a generated one
func WithID(id string) Option {
	return func(c *sessionConfig) error {
		if id == "" {
			return NewSessionError("WithID", ErrInvalidConfig).
				WithContext("reason", "id must not be empty")
		}
		c.id = id
		return nil
	}
}

// WithCwd records the working directory the session was started in
func WithCwd(cwd string) Option {
	return func(c *sessionConfig) error {
		c.cwd = cwd
		return nil
	}
}

// WithParentSession marks the session as forked from another session
func WithParentSession(id string) Option {
	return func(c *sessionConfig) error {
		c.parentSession = id
		return nil
	}
}

// WithLog attaches a persistence backend. Without one the session is
// memory-only.
func WithLog(log storage.Log) Option {
	return func(c *sessionConfig) error {
		c.log = log
		return nil
	}
}

// WithObserver attaches an observer that is notified after each append and
// leaf move. Pass a *hooks.Registry to drive registered hooks.
func WithObserver(obs Observer) Option {
	return func(c *sessionConfig) error {
		if obs == nil {
			return NewSessionError("WithObserver", ErrInvalidConfig).
				WithContext("reason", "observer must not be nil")
		}
		c.observer = obs
		return nil
	}
}

// WithLogger sets the logger for session operations
func WithLogger(logger Logger) Option {
	return func(c *sessionConfig) error {
		if logger == nil {
			return NewSessionError("WithLogger", ErrInvalidConfig).
				WithContext("reason", "logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}
