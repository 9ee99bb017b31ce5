package storage

import (
	"context"
)

// Log is an ordered, append-only line store backing one session. The session
// layer owns all encoding; a Log only moves raw lines.
//
// Implementations are not required to be safe for concurrent use; the session
// serializes all calls.
type Log interface {
	// Load returns every persisted line in order. A log that does not exist
	// yet returns (nil, nil), not an error.
	Load(ctx context.Context) ([][]byte, error)

	// Begin truncates the log so subsequent appends rewrite it from the
	// start, creating it if needed.
	Begin(ctx context.Context) error

	// Append adds one line at the end of the log.
	Append(ctx context.Context, line []byte) error

	// Close releases any resources held by the log.
	Close(ctx context.Context) error
}
