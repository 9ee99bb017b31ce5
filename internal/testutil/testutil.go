// Package testutil provides shared test helpers for agentsession.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestDB wraps a PostgreSQL connection pool for integration tests.
type TestDB struct {
	Pool *pgxpool.Pool
}

// NewTestDB creates a test database connection from the DATABASE_URL env var,
// skipping the test when it is not set so unit runs stay database-free.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}

	return &TestDB{Pool: pool}
}

// Close closes the database connection.
func (db *TestDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// CleanLogs deletes every persisted line for the given session ids, keeping
// integration tests isolated without truncating shared tables.
func (db *TestDB) CleanLogs(ctx context.Context, sessionIDs ...string) error {
	for _, id := range sessionIDs {
		if _, err := db.Pool.Exec(ctx,
			"DELETE FROM agentsession_logs WHERE session_id = $1", id); err != nil {
			return err
		}
	}
	return nil
}

// OpenSQLDB opens a database/sql handle from DATABASE_URL using the given
// driver name, skipping the test when the variable is not set.
func OpenSQLDB(t *testing.T, driverName string) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
		return nil
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}
	return db
}
