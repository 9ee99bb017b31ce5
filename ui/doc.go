// Package ui provides an embeddable, read-only web inspector for session
// files.
//
// The inspector serves two pages over a directory of persisted sessions: a
// list of sessions and a per-session detail view showing the entry tree
// (with the current leaf marked), every entry's payload, and compaction and
// branch summaries. Message text is rendered as markdown and sanitized, so
// untrusted model output is safe to display.
//
// # Quick Start
//
//	mux := http.NewServeMux()
//	mux.Handle("/sessions/", http.StripPrefix("/sessions",
//	    ui.Handler("./chats", &ui.Config{BasePath: "/sessions"})))
//	http.ListenAndServe(":8080", mux)
//
// The handler is a standard http.Handler, so it composes with any router or
// middleware chain. It never writes to the session files.
package ui
