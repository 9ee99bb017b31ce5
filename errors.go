package agentsession

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig is returned when the session configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSessionNotFound is returned when a session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrEntryNotFound is returned when an entry id does not exist in the session
	ErrEntryNotFound = errors.New("entry not found")

	// ErrLeafMoved is returned when a guarded append finds the leaf has moved
	// since the caller captured it
	ErrLeafMoved = errors.New("leaf moved since capture")

	// ErrNoSession is returned when no session is loaded
	ErrNoSession = errors.New("no session loaded")

	// ErrStorageError is returned when a storage operation failed
	ErrStorageError = errors.New("storage operation failed")

	// ErrCorruptHeader is returned when the first persisted line is not a valid
	// session header
	ErrCorruptHeader = errors.New("corrupt session header")

	// ErrIDCollision is returned when entry id generation keeps colliding
	ErrIDCollision = errors.New("entry id collision")
)

// SessionError represents an error with additional context
type SessionError struct {
	Op        string         // Operation that failed
	Err       error          // Underlying error
	SessionID string         // Session ID if applicable
	Context   map[string]any // Additional context
}

// Error implements the error interface
func (e *SessionError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("%s (session=%s): %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *SessionError) Unwrap() error {
	return e.Err
}

// WithContext adds additional context to the error
func (e *SessionError) WithContext(key string, value any) *SessionError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewSessionError creates a new SessionError
func NewSessionError(op string, err error) *SessionError {
	return &SessionError{
		Op:  op,
		Err: err,
	}
}

// NewSessionErrorWithSession creates a new SessionError with session ID
func NewSessionErrorWithSession(op string, sessionID string, err error) *SessionError {
	return &SessionError{
		Op:        op,
		Err:       err,
		SessionID: sessionID,
	}
}
