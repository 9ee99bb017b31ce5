package ui

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/youssefsiam38/agentsession"
)

// Handler returns a read-only HTTP inspector over the session files in dir.
// It serves a session list at the root and a detail page with the entry tree
// and rendered messages under /sessions/{id}.
//
// Usage:
//
//	http.Handle("/sessions/", http.StripPrefix("/sessions",
//	    ui.Handler("./chats", &ui.Config{BasePath: "/sessions"})))
//
// The handler never writes to the session files.
func Handler(dir string, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()

	// Validate configuration (panic on invalid config as this is a programmer error)
	if err := cfg.validate(); err != nil {
		panic("ui: invalid configuration: " + err.Error())
	}

	h := &handler{dir: dir, config: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.listSessions)
	mux.HandleFunc("GET /sessions/{id}", h.showSession)
	return mux
}

type handler struct {
	dir    string
	config *Config
}

// listPage is the view model for the session list.
type listPage struct {
	BasePath string
	Sessions []agentsession.SessionInfo
	Total    int
	Page     int
	PrevPage int // 0 when on the first page
	NextPage int // 0 when on the last page
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := agentsession.ListSessions(h.dir)
	if err != nil {
		h.config.Logger.Error("session listing failed", "dir", h.dir, "error", err)
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}

	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 1 {
		page = p
	}

	total := len(infos)
	start := (page - 1) * h.config.PageSize
	if start > total {
		start = total
	}
	end := start + h.config.PageSize
	if end > total {
		end = total
	}

	data := listPage{
		BasePath: h.config.BasePath,
		Sessions: infos[start:end],
		Total:    total,
		Page:     page,
		PrevPage: page - 1,
	}
	if end < total {
		data.NextPage = page + 1
	}
	h.render(w, listTemplate, data)
}

// sessionPage is the view model for the session detail page.
type sessionPage struct {
	BasePath  string
	Header    agentsession.Header
	Name      string
	TreeLines []string
	Entries   []entryView
}

// entryView is one entry prepared for display.
type entryView struct {
	ID        string
	Type      string
	Parent    string
	Timestamp time.Time
	Role      string
	Label     string
	IsLeaf    bool
	OnPath    bool
	HTML      template.HTML
}

func (h *handler) showSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	path, ok := h.findSessionPath(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	session, err := agentsession.Open(r.Context(), path)
	if err != nil {
		h.config.Logger.Error("session open failed", "path", path, "error", err)
		http.Error(w, "failed to open session", http.StatusInternalServerError)
		return
	}
	defer session.Close(r.Context())

	onPath := make(map[string]bool)
	if branch, err := session.BranchEntries(""); err == nil {
		for _, entry := range branch {
			onPath[entry.Base().ID] = true
		}
	}

	page := sessionPage{
		BasePath:  h.config.BasePath,
		Header:    session.Header(),
		Name:      session.Name(),
		TreeLines: session.TreeLines(),
	}
	for _, entry := range session.Entries() {
		page.Entries = append(page.Entries, newEntryView(entry, session.Leaf(), onPath))
	}
	h.render(w, sessionTemplate, page)
}

// findSessionPath resolves a session id to its backing file.
func (h *handler) findSessionPath(id string) (string, bool) {
	infos, err := agentsession.ListSessions(h.dir)
	if err != nil {
		return "", false
	}
	for _, info := range infos {
		if info.ID == id {
			return info.Path, true
		}
	}
	return "", false
}

func newEntryView(entry agentsession.Entry, leaf string, onPath map[string]bool) entryView {
	base := entry.Base()
	view := entryView{
		ID:        base.ID,
		Type:      base.Type.String(),
		Parent:    base.Parent(),
		Timestamp: base.Timestamp,
		IsLeaf:    base.ID == leaf,
		OnPath:    onPath[base.ID],
	}

	switch e := entry.(type) {
	case agentsession.MessageEntry:
		view.Role = string(e.Message.Role)
		view.HTML = renderMessage(e.Message)
	case agentsession.ModelChangeEntry:
		view.Label = e.Provider + " / " + e.ModelID
	case agentsession.CompactionEntry:
		view.Label = "kept from " + e.FirstKeptEntryID
		view.HTML = renderMarkdown(e.Summary)
	case agentsession.BranchSummaryEntry:
		if e.FromID == agentsession.BranchFromRoot {
			view.Label = "abandoned from root"
		} else {
			view.Label = "abandoned from " + e.FromID
		}
		view.HTML = renderMarkdown(e.Summary)
	case agentsession.SessionInfoEntry:
		view.Label = e.Name
	}
	return view
}

// renderMessage renders a message's blocks: text as markdown, tool traffic
// as labeled code.
func renderMessage(msg agentsession.Message) template.HTML {
	var html template.HTML
	for _, block := range msg.Content {
		switch block.Type {
		case agentsession.ContentTypeText:
			html += renderMarkdown(block.Text)
		case agentsession.ContentTypeThinking:
			html += "<details><summary>thinking</summary>" + renderMarkdown(block.Thinking) + "</details>"
		case agentsession.ContentTypeToolUse:
			html += template.HTML("<pre class=\"tool\">" +
				template.HTMLEscapeString(block.ToolName+"("+block.ToolInputString()+")") + "</pre>")
		case agentsession.ContentTypeToolResult:
			html += template.HTML("<pre class=\"tool\">" +
				template.HTMLEscapeString(block.ToolContent) + "</pre>")
		}
	}
	return html
}

func (h *handler) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.config.Logger.Error("template rendering failed", "error", err)
	}
}
