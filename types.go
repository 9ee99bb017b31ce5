package agentsession

import (
	"sort"
	"time"

	"github.com/youssefsiam38/agentsession/types"
)

// Header is the first line of a persisted session log. It is written once and
// never mutated.
type Header struct {
	Type          EntryType `json:"type"` // always EntryTypeSession
	Version       int       `json:"version"`
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Cwd           string    `json:"cwd"`
	ParentSession string    `json:"parentSession,omitempty"`
}

// EntryBase holds the fields shared by every entry variant. ParentID is nil
// only for entries appended while the leaf was unset.
type EntryBase struct {
	Type      EntryType `json:"type"`
	ID        string    `json:"id"`
	ParentID  *string   `json:"parentId"`
	Timestamp time.Time `json:"timestamp"`
}

// Base returns the shared entry fields.
func (b EntryBase) Base() EntryBase { return b }

// Parent returns the parent entry id, or "" for a root entry.
func (b EntryBase) Parent() string { return Deref(b.ParentID) }

// Entry is the tagged union of session log entry variants. The concrete types
// are MessageEntry, ModelChangeEntry, CompactionEntry, BranchSummaryEntry and
// SessionInfoEntry; consumers switch on the concrete type (or on Base().Type)
// and treat unknown variants as skippable.
type Entry interface {
	Base() EntryBase
}

// MessageEntry wraps one conversation message.
type MessageEntry struct {
	EntryBase
	Message types.Message `json:"message"`
}

// ModelChangeEntry records a switch of provider/model identifier.
type ModelChangeEntry struct {
	EntryBase
	Provider string `json:"provider"`
	ModelID  string `json:"modelId"`
}

// CompactionEntry replaces the history strictly before FirstKeptEntryID with a
// generated summary. The unabridged history stays in the tree; only rebuilt
// context shortens.
type CompactionEntry struct {
	EntryBase
	Summary          string          `json:"summary"`
	FirstKeptEntryID string          `json:"firstKeptEntryId"`
	TokensBefore     int             `json:"tokensBefore"`
	Details          *SummaryDetails `json:"details,omitempty"`
}

// BranchSummaryEntry captures the portion of history abandoned by a branch.
// FromID is the tip entry the abandoned branch ended at, BranchFromRoot when
// the previous leaf was unset.
type BranchSummaryEntry struct {
	EntryBase
	FromID  string          `json:"fromId"`
	Summary string          `json:"summary"`
	Details *SummaryDetails `json:"details,omitempty"`
}

// SessionInfoEntry updates session display metadata. The last one on the log
// wins.
type SessionInfoEntry struct {
	EntryBase
	Name string `json:"name"`
}

// SummaryDetails carries the structured file-operation summary attached to
// compaction and branch summary entries.
type SummaryDetails struct {
	ReadFiles     []string `json:"readFiles,omitempty"`
	ModifiedFiles []string `json:"modifiedFiles,omitempty"`
}

// ModelRef identifies the active provider/model of a rebuilt context.
type ModelRef struct {
	Provider string `json:"provider"`
	ModelID  string `json:"modelId"`
}

// TreeNode is one node of the reconstructed entry tree. Children are sorted by
// timestamp, stable on ties.
type TreeNode struct {
	Entry    Entry
	Children []*TreeNode
}

// buildTree reconstructs the parent->children forest from entries in append
// order. Entries whose parent is missing from the set are treated as roots so
// a partially loaded log still renders.
func buildTree(entries []Entry) []*TreeNode {
	nodes := make(map[string]*TreeNode, len(entries))
	var roots []*TreeNode

	for _, entry := range entries {
		nodes[entry.Base().ID] = &TreeNode{Entry: entry}
	}
	for _, entry := range entries {
		node := nodes[entry.Base().ID]
		parent := entry.Base().Parent()
		if parent == "" {
			roots = append(roots, node)
			continue
		}
		if parentNode, ok := nodes[parent]; ok {
			parentNode.Children = append(parentNode.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	sortNodes(roots)
	for _, node := range nodes {
		sortNodes(node.Children)
	}
	return roots
}

func sortNodes(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Entry.Base().Timestamp.Before(nodes[j].Entry.Base().Timestamp)
	})
}

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}

// Deref safely dereferences a pointer, returning the zero value if nil.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// DerefOr dereferences a pointer, returning the given default if nil.
func DerefOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
