package agentsession

// HeaderVersion is the current version written into session headers.
const HeaderVersion = 1

// FileExtension is the extension used for persisted session logs.
const FileExtension = ".jsonl"

// EntryType identifies the kind of a session log entry. The same values appear
// as the "type" field on persisted JSONL lines.
type EntryType string

const (
	// EntryTypeSession marks the header line of a persisted session.
	EntryTypeSession EntryType = "session"

	// EntryTypeMessage wraps one conversation message.
	EntryTypeMessage EntryType = "message"

	// EntryTypeModelChange records a switch of provider/model.
	EntryTypeModelChange EntryType = "model_change"

	// EntryTypeCompaction replaces a summarized prefix of the active path.
	EntryTypeCompaction EntryType = "compaction"

	// EntryTypeBranchSummary captures history abandoned by a branch.
	EntryTypeBranchSummary EntryType = "branch_summary"

	// EntryTypeSessionInfo updates session display metadata.
	EntryTypeSessionInfo EntryType = "session_info"
)

// String returns the string representation of the entry type.
func (t EntryType) String() string {
	return string(t)
}

// PersistState represents the persistence lifecycle of a session.
//
// State transitions:
//
//	buffering ────────────────┐
//	    │ (first message      │
//	    │  append succeeds)   │
//	    v                     │
//	streaming ────────────────┘
//
// In the buffering state entries accumulate in memory only, so sessions that
// never receive a real message leave no file behind. The first successful
// message append flushes the header and every buffered entry, and from then on
// each append streams exactly one line. Sessions loaded from an existing log
// start in the streaming state. Sessions without a backing log stay buffering
// forever.
type PersistState string

const (
	PersistStateBuffering PersistState = "buffering"
	PersistStateStreaming PersistState = "streaming"
)

// String returns the string representation of the persist state.
func (s PersistState) String() string {
	return string(s)
}

// BranchFromRoot is the fromId sentinel recorded on a branch summary when the
// abandoned branch started before any entry.
const BranchFromRoot = ""
