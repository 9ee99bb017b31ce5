package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// SQLLog is PostgresLog's database/sql counterpart for hosts not using pgx
// directly. Queries use $n placeholders, so the driver must be
// Postgres-compatible (lib/pq, pgx stdlib). The *sql.DB is owned by the
// caller and is not closed by Close.
type SQLLog struct {
	mu        sync.Mutex
	db        *sql.DB
	sessionID string
	nextSeq   int64
}

// NewSQLLog creates a database/sql-backed log for the given session id.
func NewSQLLog(db *sql.DB, sessionID string) *SQLLog {
	return &SQLLog{db: db, sessionID: sessionID}
}

// EnsureSchema creates the backing table if it does not exist.
func (l *SQLLog) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS agentsession_logs (
			session_id TEXT NOT NULL,
			seq        BIGINT NOT NULL,
			line       JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (session_id, seq)
		)
	`
	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create agentsession_logs: %w", err)
	}
	return nil
}

// Load returns the session's lines ordered by sequence.
func (l *SQLLog) Load(ctx context.Context) ([][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := `
		SELECT seq, line
		FROM agentsession_logs
		WHERE session_id = $1
		ORDER BY seq
	`
	rows, err := l.db.QueryContext(ctx, query, l.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session log: %w", err)
	}
	defer rows.Close()

	var lines [][]byte
	for rows.Next() {
		var seq int64
		var line []byte
		if err := rows.Scan(&seq, &line); err != nil {
			return nil, fmt.Errorf("failed to scan log line: %w", err)
		}
		lines = append(lines, line)
		l.nextSeq = seq + 1
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}
	return lines, nil
}

// Begin deletes the session's lines and resets the sequence counter.
func (l *SQLLog) Begin(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := `DELETE FROM agentsession_logs WHERE session_id = $1`
	if _, err := l.db.ExecContext(ctx, query, l.sessionID); err != nil {
		return fmt.Errorf("failed to reset session log: %w", err)
	}
	l.nextSeq = 0
	return nil
}

// Append inserts one line at the next sequence number.
func (l *SQLLog) Append(ctx context.Context, line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := `
		INSERT INTO agentsession_logs (session_id, seq, line)
		VALUES ($1, $2, $3)
	`
	if _, err := l.db.ExecContext(ctx, query, l.sessionID, l.nextSeq, line); err != nil {
		return fmt.Errorf("failed to append log line: %w", err)
	}
	l.nextSeq++
	return nil
}

// Close is a no-op; the database handle belongs to the caller.
func (l *SQLLog) Close(ctx context.Context) error {
	return nil
}
