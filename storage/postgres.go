package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLog stores one session's lines in an append-only table, keyed by
// session id and sequence number. The pool is owned by the caller and is not
// closed by Close.
type PostgresLog struct {
	mu        sync.Mutex
	pool      *pgxpool.Pool
	sessionID string
	nextSeq   int64
}

// NewPostgresLog creates a Postgres-backed log for the given session id.
// Call Load or Begin before the first Append so the sequence counter is
// positioned; the session layer always does.
func NewPostgresLog(pool *pgxpool.Pool, sessionID string) *PostgresLog {
	return &PostgresLog{pool: pool, sessionID: sessionID}
}

// EnsureSchema creates the backing table if it does not exist.
func (l *PostgresLog) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS agentsession_logs (
			session_id TEXT NOT NULL,
			seq        BIGINT NOT NULL,
			line       JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (session_id, seq)
		)
	`
	if _, err := l.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create agentsession_logs: %w", err)
	}
	return nil
}

// Load returns the session's lines ordered by sequence.
func (l *PostgresLog) Load(ctx context.Context) ([][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := `
		SELECT seq, line
		FROM agentsession_logs
		WHERE session_id = $1
		ORDER BY seq
	`
	rows, err := l.pool.Query(ctx, query, l.sessionID)
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
func (l *PostgresLog) Begin(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := `DELETE FROM agentsession_logs WHERE session_id = $1`
	if _, err := l.pool.Exec(ctx, query, l.sessionID); err != nil {
		return fmt.Errorf("failed to reset session log: %w", err)
	}
	l.nextSeq = 0
	return nil
}

// Append inserts one line at the next sequence number.
func (l *PostgresLog) Append(ctx context.Context, line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	query := `
		INSERT INTO agentsession_logs (session_id, seq, line)
		VALUES ($1, $2, $3)
	`
	if _, err := l.pool.Exec(ctx, query, l.sessionID, l.nextSeq, line); err != nil {
		return fmt.Errorf("failed to append log line: %w", err)
	}
	l.nextSeq++
	return nil
}

// Close is a no-op; the pool belongs to the caller.
func (l *PostgresLog) Close(ctx context.Context) error {
	return nil
}
