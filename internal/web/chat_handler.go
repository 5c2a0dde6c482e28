package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtside-ai/courtside/internal/chat"
	"github.com/courtside-ai/courtside/internal/llm"
	"github.com/courtside-ai/courtside/internal/scraper"
	"github.com/courtside-ai/courtside/internal/util"
)

// chatTimeout bounds one full turn, model call included.
const chatTimeout = 2 * time.Minute

// ChatHandler exposes the conversation-facing operations: turns, document
// attachment and removal, previews, resets.
type ChatHandler struct {
	registry *chat.Registry
	provider llm.Provider
	scrapes  *scraper.Service
}

// NewChatHandler creates a handler over the conversation registry.
func NewChatHandler(registry *chat.Registry, provider llm.Provider, scrapes *scraper.Service) *ChatHandler {
	return &ChatHandler{registry: registry, provider: provider, scrapes: scrapes}
}

type messageRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type messageResponse struct {
	Message            llm.Message `json:"message"`
	EvictionExhausted  bool        `json:"eviction_exhausted"`
	TotalContextTokens int         `json:"total_context_tokens"`
}

// HandleMessage runs one chat turn: user message in, assistant reply out.
// Corruption maps to 409 (reset the conversation), transport failures to 502
// (retry), so callers can tell the two apart.
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "message cannot be empty")
		return
	}
	if len([]rune(req.Message)) > maxMessageRunes {
		writeError(w, http.StatusRequestEntityTooLarge, "bad_request", "message too long")
		return
	}

	mgr, err := h.registry.GetOrCreate(req.ConversationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	log.Printf("[Chat] %s: %s", req.ConversationID, util.TruncateRunes(req.Message, 120))

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	reply, err := mgr.RunTurn(ctx, req.Message, h.provider.Complete)
	switch {
	case errors.Is(err, chat.ErrContextCorrupted):
		writeError(w, http.StatusConflict, "corrupted", "conversation context corrupted; reset the conversation")
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "transport", err.Error())
		return
	}

	stats := mgr.Snapshot()
	writeJSON(w, http.StatusOK, messageResponse{
		Message:            reply,
		EvictionExhausted:  stats.Exhausted,
		TotalContextTokens: stats.TotalTokens,
	})
}

type conversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

// HandleAttachContext attaches a completed scrape entry's content to a
// conversation's documents.
func (h *ChatHandler) HandleAttachContext(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid scrape entry id")
		return
	}
	var req conversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.scrapes.Entry(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "not_found", "scrape entry not found")
		return
	}
	if !entry.Ready() {
		writeError(w, http.StatusBadRequest, "bad_request", "scrape entry not ready: status "+string(entry.Status))
		return
	}

	mgr, err := h.registry.GetOrCreate(req.ConversationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := mgr.AddDocument(entry.URL, entry.Content); err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleRemoveContext removes a document by source URL. Removal of an absent
// URL succeeds without touching the conversation.
func (h *ChatHandler) HandleRemoveContext(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("conversation_id")
	url := r.URL.Query().Get("url")
	if convID == "" || url == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "conversation_id and url are required")
		return
	}

	mgr := h.registry.Get(convID)
	if mgr == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown conversation")
		return
	}
	removed, err := mgr.RemoveDocument(url)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "removed": removed})
}

// HandleClearContext empties a conversation's documents.
func (h *ChatHandler) HandleClearContext(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mgr := h.registry.Get(req.ConversationID)
	if mgr == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown conversation")
		return
	}
	if err := mgr.ClearDocuments(); err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandlePreview returns the conversation's current document section text.
func (h *ChatHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("conversation_id")
	mgr := h.registry.Get(convID)
	if mgr == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown conversation")
		return
	}
	preview, err := mgr.DocumentsPreview()
	if errors.Is(err, chat.ErrTemplateCorrupted) {
		writeError(w, http.StatusConflict, "corrupted", "system message corrupted; reset the conversation")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	stats := mgr.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"preview": preview, "stats": stats})
}

// HandleResetConversation drops a conversation entirely. This is the
// recovery path for corrupted contexts.
func (h *ChatHandler) HandleResetConversation(w http.ResponseWriter, r *http.Request) {
	h.registry.Delete(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleTopic titles a conversation from its transcript.
func (h *ChatHandler) HandleTopic(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mgr := h.registry.Get(req.ConversationID)
	if mgr == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown conversation")
		return
	}

	var sb strings.Builder
	for _, m := range mgr.Transcript() {
		if m.Role == llm.RoleSystem {
			continue
		}
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(util.TruncateRunes(m.Content, 500))
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "conversation has no turns yet")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	topic, err := llm.GenerateTopic(ctx, h.provider, sb.String())
	if err != nil {
		writeError(w, http.StatusBadGateway, "transport", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"topic": topic})
}
