package agentsession

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{
			name: "valid header",
			line: `{"type":"session","version":1,"id":"abc","timestamp":"2026-01-02T15:04:05Z","cwd":"/work"}`,
		},
		{
			name: "valid header with parent",
			line: `{"type":"session","version":1,"id":"abc","timestamp":"2026-01-02T15:04:05Z","cwd":"/work","parentSession":"def"}`,
		},
		{
			name:    "not json",
			line:    `this is not json`,
			wantErr: true,
		},
		{
			name:    "wrong type",
			line:    `{"type":"message","id":"abc"}`,
			wantErr: true,
		},
		{
			name:    "missing id",
			line:    `{"type":"session","version":1}`,
			wantErr: true,
		},
		{
			name:    "zero version",
			line:    `{"type":"session","version":0,"id":"abc"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, err := parseHeader([]byte(tt.line))
			if tt.wantErr {
				if !errors.Is(err, ErrCorruptHeader) {
					t.Errorf("expected ErrCorruptHeader, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHeader returned error: %v", err)
			}
			if header.ID != "abc" {
				t.Errorf("expected id 'abc', got %q", header.ID)
			}
		})
	}
}

func TestParseEntryVariants(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantType EntryType
	}{
		{
			name:     "message",
			line:     `{"type":"message","id":"m1","parentId":null,"timestamp":"2026-01-02T15:04:05Z","message":{"role":"user","content":[{"type":"text","text":"hi"}]}}`,
			wantType: EntryTypeMessage,
		},
		{
			name:     "model_change",
			line:     `{"type":"model_change","id":"m2","parentId":"m1","timestamp":"2026-01-02T15:04:05Z","provider":"anthropic","modelId":"claude-x"}`,
			wantType: EntryTypeModelChange,
		},
		{
			name:     "compaction",
			line:     `{"type":"compaction","id":"m3","parentId":"m2","timestamp":"2026-01-02T15:04:05Z","summary":"s","firstKeptEntryId":"m1","tokensBefore":42}`,
			wantType: EntryTypeCompaction,
		},
		{
			name:     "branch_summary",
			line:     `{"type":"branch_summary","id":"m4","parentId":"m1","timestamp":"2026-01-02T15:04:05Z","fromId":"m3","summary":"s"}`,
			wantType: EntryTypeBranchSummary,
		},
		{
			name:     "session_info",
			line:     `{"type":"session_info","id":"m5","parentId":"m4","timestamp":"2026-01-02T15:04:05Z","name":"demo"}`,
			wantType: EntryTypeSessionInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := parseEntry([]byte(tt.line))
			if err != nil {
				t.Fatalf("parseEntry returned error: %v", err)
			}
			if entry.Base().Type != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, entry.Base().Type)
			}
		})
	}
}

func TestParseEntryRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "not json", line: `garbage`},
		{name: "unknown type", line: `{"type":"telepathy","id":"x"}`},
		{name: "missing id", line: `{"type":"message","message":{"role":"user"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseEntry([]byte(tt.line)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestMarshalEntryRoundTrip(t *testing.T) {
	entry := CompactionEntry{
		EntryBase: EntryBase{
			Type:      EntryTypeCompaction,
			ID:        "c1",
			ParentID:  Ptr("m9"),
			Timestamp: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		},
		Summary:          "what happened before",
		FirstKeptEntryID: "m5",
		TokensBefore:     9001,
		Details:          &SummaryDetails{ModifiedFiles: []string{"main.go"}},
	}

	line, err := marshalEntry(entry)
	if err != nil {
		t.Fatalf("marshalEntry returned error: %v", err)
	}
	if !strings.Contains(string(line), `"firstKeptEntryId":"m5"`) {
		t.Errorf("wire field name drifted: %s", line)
	}

	parsed, err := parseEntry(line)
	if err != nil {
		t.Fatalf("parseEntry returned error: %v", err)
	}
	got, ok := parsed.(CompactionEntry)
	if !ok {
		t.Fatalf("expected CompactionEntry, got %T", parsed)
	}
	if got.Summary != entry.Summary || got.FirstKeptEntryID != entry.FirstKeptEntryID ||
		got.TokensBefore != entry.TokensBefore {
		t.Errorf("round trip changed the entry: %+v", got)
	}
	if got.Details == nil || len(got.Details.ModifiedFiles) != 1 {
		t.Errorf("details lost in round trip: %+v", got.Details)
	}
}
