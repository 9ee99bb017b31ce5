package storage_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"

	"github.com/google/uuid"
	"github.com/youssefsiam38/agentsession/internal/testutil"
	"github.com/youssefsiam38/agentsession/storage"
)

func TestPostgresLogRoundTrip(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Close()

	ctx := context.Background()
	sessionID := uuid.New().String()
	defer db.CleanLogs(ctx, sessionID)

	log := storage.NewPostgresLog(db.Pool, sessionID)
	if err := log.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}

	lines, err := log.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected an empty log, got %d lines", len(lines))
	}

	want := [][]byte{
		[]byte(`{"type": "session", "id": "abc"}`),
		[]byte(`{"type": "message", "id": "m1"}`),
		[]byte(`{"type": "message", "id": "m2"}`),
	}
	for _, line := range want {
		if err := log.Append(ctx, line); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}

	got, err := storage.NewPostgresLog(db.Pool, sessionID).Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(got))
	}
}

func TestPostgresLogBeginResets(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Close()

	ctx := context.Background()
	sessionID := uuid.New().String()
	defer db.CleanLogs(ctx, sessionID)

	log := storage.NewPostgresLog(db.Pool, sessionID)
	if err := log.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}

	log.Append(ctx, []byte(`{"old": true}`))
	if err := log.Begin(ctx); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	log.Append(ctx, []byte(`{"new": true}`))

	lines, err := log.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("expected only the post-Begin line, got %d lines", len(lines))
	}
}

func TestPostgresLogIsolatedBySession(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer db.Close()

	ctx := context.Background()
	firstID := uuid.New().String()
	secondID := uuid.New().String()
	defer db.CleanLogs(ctx, firstID, secondID)

	first := storage.NewPostgresLog(db.Pool, firstID)
	if err := first.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}
	second := storage.NewPostgresLog(db.Pool, secondID)

	first.Append(ctx, []byte(`{"session": "first"}`))
	second.Append(ctx, []byte(`{"session": "second"}`))
	second.Append(ctx, []byte(`{"session": "second again"}`))

	lines, err := first.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("expected 1 line for the first session, got %d", len(lines))
	}
}

func TestSQLLogRoundTrip(t *testing.T) {
	db := testutil.OpenSQLDB(t, "postgres")
	defer db.Close()

	ctx := context.Background()
	sessionID := uuid.New().String()
	defer cleanSQLLogs(ctx, db, sessionID)

	log := storage.NewSQLLog(db, sessionID)
	if err := log.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}

	want := [][]byte{
		[]byte(`{"type": "session", "id": "abc"}`),
		[]byte(`{"type": "message", "id": "m1"}`),
	}
	for _, line := range want {
		if err := log.Append(ctx, line); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}

	got, err := storage.NewSQLLog(db, sessionID).Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(got))
	}

	if err := log.Begin(ctx); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	got, _ = log.Load(ctx)
	if len(got) != 0 {
		t.Errorf("expected an empty log after Begin, got %d lines", len(got))
	}
}

func cleanSQLLogs(ctx context.Context, db *sql.DB, sessionID string) {
	db.ExecContext(ctx, "DELETE FROM agentsession_logs WHERE session_id = $1", sessionID)
}

// Compile-time interface checks for every backend.
var (
	_ storage.Log = (*storage.FileLog)(nil)
	_ storage.Log = (*storage.PostgresLog)(nil)
	_ storage.Log = (*storage.SQLLog)(nil)
)
