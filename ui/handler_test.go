package ui

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/youssefsiam38/agentsession"
)

func seedSession(t *testing.T, dir string) *agentsession.Session {
	t.Helper()
	ctx := context.Background()

	session, err := agentsession.Open(ctx, dir+"/demo.jsonl")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	session.AppendSessionInfo(ctx, "demo session")
	first, _ := session.AppendMessage(ctx, agentsession.NewUserMessage("# Hello\nplease **help**"))
	session.AppendMessage(ctx, agentsession.NewAssistantMessage(
		[]agentsession.ContentBlock{agentsession.NewTextBlock("Sure thing.")},
	))
	session.AppendCompaction(ctx, "earlier work summary", first, 99, nil)
	session.Close(ctx)
	return session
}

func TestHandlerListsSessions(t *testing.T) {
	dir := t.TempDir()
	session := seedSession(t, dir)

	server := httptest.NewServer(Handler(dir, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET / returned error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp)
	if !strings.Contains(body, session.ID()) {
		t.Error("list page missing the session id")
	}
	if !strings.Contains(body, "demo session") {
		t.Error("list page missing the session name")
	}
}

func TestHandlerListPagination(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	names := []string{"first", "second", "third"}
	for _, name := range names {
		session, _ := agentsession.Open(ctx, dir+"/"+name+".jsonl")
		session.AppendSessionInfo(ctx, name)
		session.AppendMessage(ctx, agentsession.NewUserMessage("hi"))
		session.Close(ctx)
	}

	server := httptest.NewServer(Handler(dir, &Config{PageSize: 2}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET / returned error: %v", err)
	}
	defer resp.Body.Close()
	body := readBody(t, resp)
	if got := strings.Count(body, "<tr>") - 1; got != 2 { // minus the header row
		t.Errorf("expected 2 sessions on the first page, got %d", got)
	}
	if !strings.Contains(body, "?page=2") {
		t.Error("first page missing the link to the next page")
	}

	resp2, err := http.Get(server.URL + "/?page=2")
	if err != nil {
		t.Fatalf("GET /?page=2 returned error: %v", err)
	}
	defer resp2.Body.Close()
	body2 := readBody(t, resp2)
	if got := strings.Count(body2, "<tr>") - 1; got != 1 {
		t.Errorf("expected 1 session on the second page, got %d", got)
	}
	if !strings.Contains(body2, "?page=1") {
		t.Error("second page missing the link back to the first page")
	}
	if strings.Contains(body2, "?page=3") {
		t.Error("last page links to a page past the end")
	}
}

func TestHandlerShowsSession(t *testing.T) {
	dir := t.TempDir()
	session := seedSession(t, dir)

	server := httptest.NewServer(Handler(dir, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/sessions/" + session.ID())
	if err != nil {
		t.Fatalf("GET session returned error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp)
	if !strings.Contains(body, "<strong>help</strong>") {
		t.Error("markdown was not rendered")
	}
	if !strings.Contains(body, "earlier work summary") {
		t.Error("compaction summary missing from the page")
	}
	if !strings.Contains(body, "leaf-badge") {
		t.Error("leaf marker missing from the page")
	}
}

func TestHandlerSanitizesMessageHTML(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	session, _ := agentsession.Open(ctx, dir+"/hostile.jsonl")
	session.AppendMessage(ctx, agentsession.NewUserMessage(`<script>alert("x")</script> hi`))
	session.Close(ctx)

	server := httptest.NewServer(Handler(dir, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/sessions/" + session.ID())
	if err != nil {
		t.Fatalf("GET session returned error: %v", err)
	}
	defer resp.Body.Close()

	body := readBody(t, resp)
	if strings.Contains(body, "<script>") {
		t.Error("script tag survived sanitization")
	}
}

func TestHandlerUnknownSession(t *testing.T) {
	server := httptest.NewServer(Handler(t.TempDir(), nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/sessions/nope")
	if err != nil {
		t.Fatalf("GET returned error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandlerInvalidConfigPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for invalid config")
		}
	}()
	Handler(t.TempDir(), &Config{PageSize: -1})
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}
