package agentsession

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/youssefsiam38/agentsession/storage"
	"github.com/youssefsiam38/agentsession/types"
)

const (
	// entryIDBytes is the number of random bytes in a generated entry id
	// (hex-encoded, so ids are twice as long).
	entryIDBytes = 4

	// maxIDAttempts bounds the collision retry loop for entry id generation.
	maxIDAttempts = 5
)

// Session is an append-only tree of conversation entries with a movable leaf
// cursor. It assumes a single logical writer; all methods are safe for
// concurrent use from that writer plus any number of readers.
type Session struct {
	mu sync.RWMutex

	header  Header
	entries []Entry // append order
	byID    map[string]Entry
	leaf    string // "" means "before anything"

	persistState PersistState
	log          storage.Log
	logger       Logger
	observer     Observer
}

// New creates a session. Without WithLog the session is memory-only; with it,
// nothing is written until the first message append (see PersistState).
func New(opts ...Option) (*Session, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newSession(cfg), nil
}

// Load opens a session from a persistence backend. An empty backend yields a
// fresh session; a corrupt header does too, and the backend is rewritten on
// the next flush. Malformed entry lines are skipped.
func Load(ctx context.Context, log storage.Log, opts ...Option) (*Session, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	cfg.log = log

	lines, err := log.Load(ctx)
	if err != nil {
		return nil, NewSessionError("Load", err)
	}
	if len(lines) == 0 {
		return newSession(cfg), nil
	}

	header, err := parseHeader(lines[0])
	if err != nil {
		cfg.logger.Warn("session header corrupt, starting fresh", "error", err)
		return newSession(cfg), nil
	}

	s := &Session{
		header:       header,
		byID:         make(map[string]Entry),
		persistState: PersistStateStreaming,
		log:          cfg.log,
		logger:       cfg.logger,
		observer:     cfg.observer,
	}
	for i, line := range lines[1:] {
		entry, err := parseEntry(line)
		if err != nil {
			s.logger.Warn("skipping malformed entry line",
				"session", s.header.ID, "line", i+2, "error", err)
			continue
		}
		s.entries = append(s.entries, entry)
		s.byID[entry.Base().ID] = entry
		s.leaf = entry.Base().ID
	}
	s.logger.Debug("session loaded",
		"session", s.header.ID, "entries", len(s.entries), "leaf", s.leaf)
	return s, nil
}

// Open loads the session file at path, creating it lazily on the first
// message append when it does not exist yet.
func Open(ctx context.Context, path string, opts ...Option) (*Session, error) {
	return Load(ctx, storage.NewFileLog(path), opts...)
}

// Fork copies the session into a new one whose header records this session as
// its parent. Entries and the leaf position carry over; persistence starts
// fresh on whatever backend the options attach.
func (s *Session) Fork(opts ...Option) (*Session, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg.parentSession = s.header.ID
	if cfg.cwd == "" {
		cfg.cwd = s.header.Cwd
	}
	fork := newSession(cfg)
	fork.entries = append([]Entry(nil), s.entries...)
	for _, entry := range s.entries {
		fork.byID[entry.Base().ID] = entry
	}
	fork.leaf = s.leaf
	return fork, nil
}

func buildConfig(opts []Option) (sessionConfig, error) {
	var cfg sessionConfig
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return cfg, err
		}
	}
	if cfg.id == "" {
		cfg.id = uuid.New().String()
	}
	if cfg.cwd == "" {
		cfg.cwd, _ = os.Getwd()
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	return cfg, nil
}

func newSession(cfg sessionConfig) *Session {
	return &Session{
		header: Header{
			Type:          EntryTypeSession,
			Version:       HeaderVersion,
			ID:            cfg.id,
			Timestamp:     time.Now().UTC(),
			Cwd:           cfg.cwd,
			ParentSession: cfg.parentSession,
		},
		byID:         make(map[string]Entry),
		persistState: PersistStateBuffering,
		log:          cfg.log,
		logger:       cfg.logger,
		observer:     cfg.observer,
	}
}

// AppendMessage appends a conversation message as a child of the current leaf
// and advances the leaf to it. Returns the new entry id.
func (s *Session) AppendMessage(ctx context.Context, msg types.Message) (string, error) {
	s.mu.Lock()
	base, err := s.nextBase(EntryTypeMessage)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	entry := MessageEntry{EntryBase: base, Message: msg}
	id := s.commit(ctx, entry)
	s.mu.Unlock()

	s.notifyAppended(ctx, entry)
	return id, nil
}

// AppendModelChange records a switch to the given provider/model.
func (s *Session) AppendModelChange(ctx context.Context, provider, modelID string) (string, error) {
	s.mu.Lock()
	base, err := s.nextBase(EntryTypeModelChange)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	entry := ModelChangeEntry{EntryBase: base, Provider: provider, ModelID: modelID}
	id := s.commit(ctx, entry)
	s.mu.Unlock()

	s.notifyAppended(ctx, entry)
	return id, nil
}

// AppendCompaction records a compaction checkpoint. firstKeptEntryID must name
// an existing entry; everything strictly before it on the path is represented
// only by the summary in rebuilt context.
func (s *Session) AppendCompaction(ctx context.Context, summary, firstKeptEntryID string, tokensBefore int, details *SummaryDetails) (string, error) {
	s.mu.Lock()
	entry, err := s.appendCompactionLocked(ctx, summary, firstKeptEntryID, tokensBefore, details)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.notifyAppended(ctx, entry)
	return entry.ID, nil
}

// AppendCompactionAt is AppendCompaction guarded by a leaf check: the entry is
// appended only if the current leaf still equals plannedLeaf, otherwise
// ErrLeafMoved. This lets an asynchronous compaction reject its own stale
// result instead of attaching it to a branch that moved underneath it.
func (s *Session) AppendCompactionAt(ctx context.Context, plannedLeaf, summary, firstKeptEntryID string, tokensBefore int, details *SummaryDetails) (string, error) {
	s.mu.Lock()
	if s.leaf != plannedLeaf {
		leaf := s.leaf
		s.mu.Unlock()
		return "", NewSessionErrorWithSession("AppendCompactionAt", s.header.ID, ErrLeafMoved).
			WithContext("plannedLeaf", plannedLeaf).
			WithContext("leaf", leaf)
	}
	entry, err := s.appendCompactionLocked(ctx, summary, firstKeptEntryID, tokensBefore, details)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.notifyAppended(ctx, entry)
	return entry.ID, nil
}

func (s *Session) appendCompactionLocked(ctx context.Context, summary, firstKeptEntryID string, tokensBefore int, details *SummaryDetails) (CompactionEntry, error) {
	if _, ok := s.byID[firstKeptEntryID]; !ok {
		return CompactionEntry{}, NewSessionErrorWithSession("AppendCompaction", s.header.ID, ErrEntryNotFound).
			WithContext("firstKeptEntryId", firstKeptEntryID)
	}
	base, err := s.nextBase(EntryTypeCompaction)
	if err != nil {
		return CompactionEntry{}, err
	}
	entry := CompactionEntry{
		EntryBase:        base,
		Summary:          summary,
		FirstKeptEntryID: firstKeptEntryID,
		TokensBefore:     tokensBefore,
		Details:          details,
	}
	s.commit(ctx, entry)
	return entry, nil
}

// AppendSessionInfo records a display-name update. The most recent one wins.
func (s *Session) AppendSessionInfo(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	base, err := s.nextBase(EntryTypeSessionInfo)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	entry := SessionInfoEntry{EntryBase: base, Name: name}
	id := s.commit(ctx, entry)
	s.mu.Unlock()

	s.notifyAppended(ctx, entry)
	return id, nil
}

// Branch moves the leaf to an existing entry without creating anything.
// Subsequent appends fork from that point; the abandoned continuation stays in
// the tree. An empty id moves the leaf to before-anything, like ResetLeaf.
func (s *Session) Branch(entryID string) error {
	s.mu.Lock()
	if err := s.checkBranchTarget(entryID); err != nil {
		s.mu.Unlock()
		return err
	}
	fromID := s.leaf
	s.leaf = entryID
	s.mu.Unlock()

	s.notifyBranch(context.Background(), fromID, entryID)
	return nil
}

// BranchWithSummary moves the leaf to entryID and appends a branch_summary
// entry there, capturing what is being abandoned before diverging. The entry
// records fromId = the leaf at call time (BranchFromRoot when unset) and the
// leaf ends on the new entry so rebuilt context carries the summary forward.
func (s *Session) BranchWithSummary(ctx context.Context, entryID, summary string, details *SummaryDetails) (string, error) {
	s.mu.Lock()
	entry, err := s.branchWithSummaryLocked(ctx, entryID, summary, details)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.notifyBranch(ctx, entry.FromID, entryID)
	s.notifyAppended(ctx, entry)
	return entry.ID, nil
}

// BranchWithSummaryAt is BranchWithSummary guarded by a leaf check, the
// counterpart of AppendCompactionAt: the branch commits only if the current
// leaf still equals plannedLeaf, otherwise ErrLeafMoved. An asynchronous
// branch summarization uses it so entries appended while the model call was
// in flight are never swept into the abandoned range unsummarized.
func (s *Session) BranchWithSummaryAt(ctx context.Context, plannedLeaf, entryID, summary string, details *SummaryDetails) (string, error) {
	s.mu.Lock()
	if s.leaf != plannedLeaf {
		leaf := s.leaf
		s.mu.Unlock()
		return "", NewSessionErrorWithSession("BranchWithSummaryAt", s.header.ID, ErrLeafMoved).
			WithContext("plannedLeaf", plannedLeaf).
			WithContext("leaf", leaf)
	}
	entry, err := s.branchWithSummaryLocked(ctx, entryID, summary, details)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.notifyBranch(ctx, entry.FromID, entryID)
	s.notifyAppended(ctx, entry)
	return entry.ID, nil
}

func (s *Session) branchWithSummaryLocked(ctx context.Context, entryID, summary string, details *SummaryDetails) (BranchSummaryEntry, error) {
	if err := s.checkBranchTarget(entryID); err != nil {
		return BranchSummaryEntry{}, err
	}
	fromID := s.leaf
	s.leaf = entryID

	base, err := s.nextBase(EntryTypeBranchSummary)
	if err != nil {
		s.leaf = fromID
		return BranchSummaryEntry{}, err
	}
	entry := BranchSummaryEntry{
		EntryBase: base,
		FromID:    fromID,
		Summary:   summary,
		Details:   details,
	}
	s.commit(ctx, entry)
	return entry, nil
}

func (s *Session) checkBranchTarget(entryID string) error {
	if entryID == "" {
		return nil
	}
	if _, ok := s.byID[entryID]; !ok {
		return NewSessionErrorWithSession("Branch", s.header.ID, ErrEntryNotFound).
			WithContext("entryId", entryID)
	}
	return nil
}

// ResetLeaf moves the leaf to before-anything without touching stored entries.
func (s *Session) ResetLeaf() {
	s.mu.Lock()
	fromID := s.leaf
	s.leaf = ""
	s.mu.Unlock()

	s.notifyBranch(context.Background(), fromID, "")
}

// notifyAppended and notifyBranch run the observer outside the session lock,
// so observers may call back into the session. Observer errors are logged;
// the committed mutation is never unwound.
func (s *Session) notifyAppended(ctx context.Context, entry Entry) {
	if s.observer == nil {
		return
	}
	if err := s.observer.TriggerEntryAppended(ctx, s.header.ID, entry); err != nil {
		s.logger.Warn("entry-appended observer failed",
			"session", s.header.ID, "entry", entry.Base().ID, "error", err)
	}
}

func (s *Session) notifyBranch(ctx context.Context, fromID, toID string) {
	if s.observer == nil || fromID == toID {
		return
	}
	if err := s.observer.TriggerBranch(ctx, s.header.ID, fromID, toID); err != nil {
		s.logger.Warn("branch observer failed",
			"session", s.header.ID, "from", fromID, "to", toID, "error", err)
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.header.ID
}

// Header returns a copy of the session header.
func (s *Session) Header() Header {
	return s.header
}

// Name returns the display name from the most recent session_info entry, or
// "" when none was recorded.
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		if info, ok := s.entries[i].(SessionInfoEntry); ok {
			return info.Name
		}
	}
	return ""
}

// Leaf returns the current leaf entry id, "" when the leaf is before-anything.
func (s *Session) Leaf() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaf
}

// LeafEntry returns the current leaf entry, nil when the leaf is unset.
func (s *Session) LeafEntry() Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.leaf == "" {
		return nil
	}
	return s.byID[s.leaf]
}

// Entry returns the entry with the given id.
func (s *Session) Entry(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.byID[id]
	return entry, ok
}

// Entries returns all entries in append order.
func (s *Session) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// EntryCount returns the number of stored entries.
func (s *Session) EntryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// BranchEntries returns the root-to-entry path ending at entryID, or at the
// current leaf when entryID is "". Unknown ids return ErrEntryNotFound.
func (s *Session) BranchEntries(entryID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tip := entryID
	if tip == "" {
		tip = s.leaf
	} else if _, ok := s.byID[tip]; !ok {
		return nil, NewSessionErrorWithSession("BranchEntries", s.header.ID, ErrEntryNotFound).
			WithContext("entryId", entryID)
	}
	return pathTo(tip, s.byID), nil
}

// Tree reconstructs the parent-to-children forest over all entries. Children
// are sorted by timestamp, stable on ties.
func (s *Session) Tree() []*TreeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return buildTree(s.entries)
}

// TreeLines renders the entry tree as indented text, one entry per line, with
// a "*" marking the current leaf.
func (s *Session) TreeLines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lines []string
	var walk func(node *TreeNode, depth int)
	walk = func(node *TreeNode, depth int) {
		marker := " "
		if node.Entry.Base().ID == s.leaf {
			marker = "*"
		}
		lines = append(lines, fmt.Sprintf("%s%s %s %s",
			strings.Repeat("  ", depth), marker, node.Entry.Base().ID, entryLabel(node.Entry)))
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	for _, root := range buildTree(s.entries) {
		walk(root, 0)
	}
	return lines
}

// PersistenceState reports whether appends are still buffering in memory or
// streaming to the backing log. Memory-only sessions stay buffering forever.
func (s *Session) PersistenceState() PersistState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistState
}

// Flush rewrites the whole backing log from memory and switches the session
// to streaming appends. Useful before shutdown, to persist a session that
// never received a message, or to re-sync after append failures. No-op
// without a backing log.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log == nil {
		return nil
	}
	return s.flushLocked(ctx)
}

// Close releases the backing log without flushing. Memory-only sessions are
// unaffected.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.log == nil {
		return nil
	}
	return s.log.Close(ctx)
}

// nextBase allocates the shared fields for a new entry: fresh id, parent =
// current leaf, timestamp now. Caller must hold the write lock.
func (s *Session) nextBase(t EntryType) (EntryBase, error) {
	id, err := s.newEntryID()
	if err != nil {
		return EntryBase{}, err
	}
	base := EntryBase{Type: t, ID: id, Timestamp: time.Now().UTC()}
	if s.leaf != "" {
		base.ParentID = Ptr(s.leaf)
	}
	return base, nil
}

func (s *Session) newEntryID() (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		buf := make([]byte, entryIDBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", NewSessionErrorWithSession("newEntryID", s.header.ID, err)
		}
		id := hex.EncodeToString(buf)
		if _, exists := s.byID[id]; !exists {
			return id, nil
		}
	}
	return "", NewSessionErrorWithSession("newEntryID", s.header.ID, ErrIDCollision)
}

// commit indexes the entry, advances the leaf, and persists. Caller must hold
// the write lock.
func (s *Session) commit(ctx context.Context, entry Entry) string {
	s.entries = append(s.entries, entry)
	s.byID[entry.Base().ID] = entry
	s.leaf = entry.Base().ID
	s.persist(ctx, entry)
	return entry.Base().ID
}

// persist applies the lazy-flush policy: while buffering, only the first
// message append triggers a full flush; while streaming, every entry appends
// one line. Write failures are logged, not returned; memory stays the source
// of truth and an explicit Flush re-syncs the log.
func (s *Session) persist(ctx context.Context, entry Entry) {
	if s.log == nil {
		return
	}
	switch s.persistState {
	case PersistStateBuffering:
		if entry.Base().Type != EntryTypeMessage {
			return
		}
		if err := s.flushLocked(ctx); err != nil {
			s.logger.Error("session flush failed", "session", s.header.ID, "error", err)
		}
	case PersistStateStreaming:
		line, err := marshalEntry(entry)
		if err != nil {
			s.logger.Error("entry marshal failed",
				"session", s.header.ID, "entry", entry.Base().ID, "error", err)
			return
		}
		if err := s.log.Append(ctx, line); err != nil {
			s.logger.Error("entry append failed",
				"session", s.header.ID, "entry", entry.Base().ID, "error", err)
		}
	}
}

func (s *Session) flushLocked(ctx context.Context) error {
	if err := s.log.Begin(ctx); err != nil {
		return NewSessionErrorWithSession("Flush", s.header.ID, err)
	}
	line, err := marshalHeader(s.header)
	if err != nil {
		return NewSessionErrorWithSession("Flush", s.header.ID, err)
	}
	if err := s.log.Append(ctx, line); err != nil {
		return NewSessionErrorWithSession("Flush", s.header.ID, err)
	}
	for _, entry := range s.entries {
		line, err := marshalEntry(entry)
		if err != nil {
			return NewSessionErrorWithSession("Flush", s.header.ID, err)
		}
		if err := s.log.Append(ctx, line); err != nil {
			return NewSessionErrorWithSession("Flush", s.header.ID, err)
		}
	}
	s.persistState = PersistStateStreaming
	s.logger.Debug("session flushed", "session", s.header.ID, "entries", len(s.entries))
	return nil
}

// pathTo walks parent links from tip to the root and returns the path in
// root-first order. Unknown parents and cycles terminate the walk instead of
// failing so partially loaded logs still produce a usable path.
func pathTo(tip string, byID map[string]Entry) []Entry {
	if tip == "" {
		return nil
	}
	var reversed []Entry
	seen := make(map[string]bool)
	for id := tip; id != ""; {
		if seen[id] {
			break
		}
		seen[id] = true
		entry, ok := byID[id]
		if !ok {
			break
		}
		reversed = append(reversed, entry)
		id = entry.Base().Parent()
	}
	path := make([]Entry, len(reversed))
	for i, entry := range reversed {
		path[len(reversed)-1-i] = entry
	}
	return path
}

func entryLabel(e Entry) string {
	switch entry := e.(type) {
	case MessageEntry:
		return fmt.Sprintf("message(%s)", entry.Message.Role)
	case ModelChangeEntry:
		return fmt.Sprintf("model_change(%s/%s)", entry.Provider, entry.ModelID)
	case CompactionEntry:
		return fmt.Sprintf("compaction(firstKept=%s)", entry.FirstKeptEntryID)
	case BranchSummaryEntry:
		if entry.FromID == BranchFromRoot {
			return "branch_summary(from=root)"
		}
		return fmt.Sprintf("branch_summary(from=%s)", entry.FromID)
	case SessionInfoEntry:
		return fmt.Sprintf("session_info(%q)", entry.Name)
	default:
		return e.Base().Type.String()
	}
}
