package agentsession

import (
	"encoding/json"
	"fmt"
)

// The persisted format is newline-delimited JSON: a session header line
// followed by one line per entry. Encoding lives here; storage backends deal
// only in raw ordered lines.

func marshalHeader(h Header) ([]byte, error) {
	return json.Marshal(h)
}

func parseHeader(line []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	if h.Type != EntryTypeSession {
		return Header{}, fmt.Errorf("%w: first line has type %q", ErrCorruptHeader, h.Type)
	}
	if h.ID == "" {
		return Header{}, fmt.Errorf("%w: missing session id", ErrCorruptHeader)
	}
	if h.Version < 1 {
		return Header{}, fmt.Errorf("%w: version %d", ErrCorruptHeader, h.Version)
	}
	return h, nil
}

func marshalEntry(e Entry) ([]byte, error) {
	return json.Marshal(e)
}

func parseEntry(line []byte) (Entry, error) {
	var peek struct {
		Type EntryType `json:"type"`
	}
	if err := json.Unmarshal(line, &peek); err != nil {
		return nil, err
	}

	var entry Entry
	switch peek.Type {
	case EntryTypeMessage:
		var e MessageEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		entry = e
	case EntryTypeModelChange:
		var e ModelChangeEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		entry = e
	case EntryTypeCompaction:
		var e CompactionEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		entry = e
	case EntryTypeBranchSummary:
		var e BranchSummaryEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		entry = e
	case EntryTypeSessionInfo:
		var e SessionInfoEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, err
		}
		entry = e
	default:
		return nil, fmt.Errorf("unknown entry type %q", peek.Type)
	}

	if entry.Base().ID == "" {
		return nil, fmt.Errorf("entry line missing id")
	}
	return entry, nil
}
