package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Game Recap</title>
  <script>trackVisitor();</script>
  <style>.hero { color: red; }</style>
</head>
<body>
  <h1>Lakers edge Celtics</h1>
  <p>A late three sealed a 112-110 win.</p>
</body>
</html>`

func newTestService(t *testing.T, handler http.Handler) (*Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := newTestStore(t)
	return NewService(store, nil, 5*time.Second, 0), srv
}

func TestScrape_ConvertsToMarkdown(t *testing.T) {
	svc, srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, samplePage)
	}))

	entry, err := svc.Scrape(context.Background(), srv.URL, "conv-1")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if entry.Status != StatusComplete {
		t.Fatalf("expected complete status, got %s", entry.Status)
	}
	if !strings.Contains(entry.Content, "Lakers edge Celtics") {
		t.Errorf("headline missing from markdown: %q", entry.Content)
	}
	if strings.Contains(entry.Content, "trackVisitor") || strings.Contains(entry.Content, ".hero") {
		t.Errorf("script/style leaked into content: %q", entry.Content)
	}

	// The entry must be persisted and listed under its conversation.
	stored, err := svc.Entry(entry.ID)
	if err != nil || stored == nil {
		t.Fatalf("entry not persisted: %v", err)
	}
	listed, err := svc.ConversationEntries("conv-1")
	if err != nil || len(listed) != 1 {
		t.Fatalf("expected 1 listed entry, got %d (%v)", len(listed), err)
	}
}

func TestScrape_TruncatesLongContent(t *testing.T) {
	long := strings.Repeat("stat line ", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", long)
	}))
	t.Cleanup(srv.Close)

	svc := NewService(newTestStore(t), nil, 5*time.Second, 100)
	entry, err := svc.Scrape(context.Background(), srv.URL, "conv-1")
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if got := len([]rune(entry.Content)); got > 103 { // cap plus "..."
		t.Errorf("content not truncated: %d runes", got)
	}
	if !strings.HasSuffix(entry.Content, "...") {
		t.Errorf("expected truncation marker, got %q", entry.Content[len(entry.Content)-10:])
	}
}

func TestScrape_HTTPErrorStatus(t *testing.T) {
	svc, srv := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))

	entry, err := svc.Scrape(context.Background(), srv.URL, "conv-1")
	if err == nil {
		t.Fatal("expected error for HTTP 403")
	}
	if entry.Status != StatusError || entry.Error == "" {
		t.Errorf("expected error entry, got %+v", entry)
	}
}

func TestScrape_RejectsNonHTTPURL(t *testing.T) {
	svc := NewService(newTestStore(t), nil, time.Second, 0)
	if _, err := svc.Scrape(context.Background(), "ftp://example.com", "conv-1"); err == nil {
		t.Error("expected error for non-http URL")
	}
}

func TestHeaderCharset(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"text/html; charset=gbk", "gbk"},
		{"text/html; charset=UTF-8", "utf-8"},
		{"text/html", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := headerCharset(tc.in); got != tc.want {
			t.Errorf("headerCharset(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
