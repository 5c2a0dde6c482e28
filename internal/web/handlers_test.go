package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/courtside-ai/courtside/internal/chat"
	"github.com/courtside-ai/courtside/internal/llm"
	"github.com/courtside-ai/courtside/internal/scraper"
	"github.com/courtside-ai/courtside/internal/token"
)

var errDown = errors.New("model unavailable")

// stubProvider returns a canned reply, or a canned error.
type stubProvider struct {
	reply string
	err   error
}

func (p *stubProvider) Complete(_ context.Context, _ []llm.Message) (llm.Message, error) {
	if p.err != nil {
		return llm.Message{}, p.err
	}
	return llm.Message{Role: llm.RoleAssistant, Content: p.reply}, nil
}

const testPrompt = "You are a helpful assistant.\n\n<documents>\n</documents>\n\nAnswer carefully."

func newTestRegistry(t *testing.T) *chat.Registry {
	t.Helper()
	reg := chat.NewRegistry(chat.Config{
		SystemPrompt: testPrompt,
		TokenBudget:  0,
		Counter:      token.Estimator{},
	}, time.Minute)
	t.Cleanup(reg.Close)
	return reg
}

func newTestScraper(t *testing.T, provider llm.Provider) (*scraper.Service, *scraper.Store) {
	t.Helper()
	store, err := scraper.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return scraper.NewService(store, provider, 5*time.Second, 0), store
}

func newTestScraperService(t *testing.T, provider llm.Provider) *scraper.Service {
	t.Helper()
	svc, _ := newTestScraper(t, provider)
	return svc
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleMessage_ReturnsAssistantReply(t *testing.T) {
	reg := newTestRegistry(t)
	h := NewChatHandler(reg, &stubProvider{reply: "The Celtics won by 12."}, newTestScraperService(t, nil))

	rec := postJSON(t, h.HandleMessage, "/api/v1/chat/message",
		`{"conversation_id":"c1","message":"Who won last night?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message.Role != llm.RoleAssistant {
		t.Errorf("role = %q, want assistant", resp.Message.Role)
	}
	if resp.Message.Content != "The Celtics won by 12." {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if resp.TotalContextTokens <= 0 {
		t.Errorf("total_context_tokens = %d, want > 0", resp.TotalContextTokens)
	}
}

func TestHandleMessage_EmptyMessageRejected(t *testing.T) {
	reg := newTestRegistry(t)
	h := NewChatHandler(reg, &stubProvider{reply: "ok"}, newTestScraperService(t, nil))

	rec := postJSON(t, h.HandleMessage, "/api/v1/chat/message",
		`{"conversation_id":"c1","message":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleMessage_TransportFailureIs502(t *testing.T) {
	reg := newTestRegistry(t)
	h := NewChatHandler(reg, &stubProvider{err: errDown}, newTestScraperService(t, nil))

	rec := postJSON(t, h.HandleMessage, "/api/v1/chat/message",
		`{"conversation_id":"c1","message":"hello"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Kind != "transport" {
		t.Errorf("kind = %q, want transport", resp.Kind)
	}

	// The failed turn must not have lost the conversation.
	mgr := reg.Get("c1")
	if mgr == nil {
		t.Fatal("conversation should exist after transport failure")
	}
}

func TestHandleAttachContext_CompletedEntry(t *testing.T) {
	reg := newTestRegistry(t)
	svc, store := newTestScraper(t, nil)
	h := NewChatHandler(reg, &stubProvider{reply: "ok"}, svc)

	entry := &scraper.Entry{
		ID:             uuid.New(),
		URL:            "https://example.com/box-score",
		ConversationID: "c1",
		Status:         scraper.StatusComplete,
		Content:        "# Box Score\nFinal: 110-98",
		LastUpdated:    time.Now(),
	}
	if err := store.Save(entry); err != nil {
		t.Fatalf("Save: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/context/"+entry.ID.String(),
		strings.NewReader(`{"conversation_id":"c1"}`))
	req.SetPathValue("id", entry.ID.String())
	rec := httptest.NewRecorder()
	h.HandleAttachContext(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	mgr := reg.Get("c1")
	if mgr == nil {
		t.Fatal("conversation not created")
	}
	if got := mgr.Snapshot().Documents; got != 1 {
		t.Errorf("documents = %d, want 1", got)
	}
}

func TestHandleAttachContext_UnknownEntryIs404(t *testing.T) {
	reg := newTestRegistry(t)
	h := NewChatHandler(reg, &stubProvider{reply: "ok"}, newTestScraperService(t, nil))

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/context/"+id,
		strings.NewReader(`{"conversation_id":"c1"}`))
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleAttachContext(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleRemoveContext(t *testing.T) {
	reg := newTestRegistry(t)
	h := NewChatHandler(reg, &stubProvider{reply: "ok"}, newTestScraperService(t, nil))

	mgr, err := reg.GetOrCreate("c1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := mgr.AddDocument("https://example.com/a", "content"); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	call := func(url string) (int, bool) {
		req := httptest.NewRequest(http.MethodDelete,
			"/api/v1/chat/context?conversation_id=c1&url="+url, nil)
		rec := httptest.NewRecorder()
		h.HandleRemoveContext(rec, req)
		var body struct {
			Removed bool `json:"removed"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		return rec.Code, body.Removed
	}

	if code, removed := call("https://example.com/a"); code != http.StatusOK || !removed {
		t.Errorf("first removal: code %d removed %v, want 200 true", code, removed)
	}
	if code, removed := call("https://example.com/a"); code != http.StatusOK || removed {
		t.Errorf("second removal: code %d removed %v, want 200 false", code, removed)
	}
}

func TestHandlePreview_UnknownConversationIs404(t *testing.T) {
	reg := newTestRegistry(t)
	h := NewChatHandler(reg, &stubProvider{reply: "ok"}, newTestScraperService(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/context/preview?conversation_id=nope", nil)
	rec := httptest.NewRecorder()
	h.HandlePreview(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleResetConversation(t *testing.T) {
	reg := newTestRegistry(t)
	h := NewChatHandler(reg, &stubProvider{reply: "ok"}, newTestScraperService(t, nil))

	if _, err := reg.GetOrCreate("c1"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/chat/conversation/c1", nil)
	req.SetPathValue("id", "c1")
	rec := httptest.NewRecorder()
	h.HandleResetConversation(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if reg.Get("c1") != nil {
		t.Error("conversation should be gone after reset")
	}
}

func TestHandleScrape_StoresFetchedPage(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h1>Standings</h1><p>East leaders.</p></body></html>"))
	}))
	defer backend.Close()

	svc := newTestScraperService(t, nil)
	h := NewScraperHandler(svc)

	rec := postJSON(t, h.HandleScrape, "/api/v1/scraper/url",
		`{"url":"`+backend.URL+`","conversation_id":"c1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var entry scraper.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Status != scraper.StatusComplete {
		t.Errorf("status = %q, want complete", entry.Status)
	}
	if !strings.Contains(entry.Content, "Standings") {
		t.Errorf("content missing heading: %q", entry.Content)
	}
}

func TestHandleDelete_Idempotent(t *testing.T) {
	svc, store := newTestScraper(t, nil)
	h := NewScraperHandler(svc)

	entry := &scraper.Entry{
		ID:          uuid.New(),
		URL:         "https://example.com/schedule",
		Status:      scraper.StatusComplete,
		Content:     "schedule",
		LastUpdated: time.Now(),
	}
	if err := store.Save(entry); err != nil {
		t.Fatalf("Save: %v", err)
	}

	del := func() int {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/scraper/content/"+entry.ID.String(), nil)
		req.SetPathValue("id", entry.ID.String())
		rec := httptest.NewRecorder()
		h.HandleDelete(rec, req)
		return rec.Code
	}
	if code := del(); code != http.StatusOK {
		t.Fatalf("first delete status = %d, want 200", code)
	}
	if got, err := svc.Entry(entry.ID); err != nil || got != nil {
		t.Fatalf("entry after delete: %+v, err %v; want nil, nil", got, err)
	}
	if code := del(); code != http.StatusOK {
		t.Fatalf("second delete status = %d, want 200", code)
	}
}

func TestHandleContent_InvalidID(t *testing.T) {
	h := NewScraperHandler(newTestScraperService(t, nil))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scraper/content/not-a-uuid", nil)
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.HandleContent(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(HealthInfo{
		LLMModel:          "deepseek/deepseek-chat",
		TokenEncoding:     "cl100k_base",
		ScraperStorageDir: "storage/scraped_content",
		ConversationCount: func() int { return 3 },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Components.Conversations.Active != 3 {
		t.Errorf("active conversations = %d, want 3", resp.Components.Conversations.Active)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", rec.Code)
	}
}
