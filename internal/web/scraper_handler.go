package web

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/courtside-ai/courtside/internal/scraper"
)

// ScraperHandler exposes URL ingestion and scraped-content lookup.
type ScraperHandler struct {
	service *scraper.Service
}

func NewScraperHandler(service *scraper.Service) *ScraperHandler {
	return &ScraperHandler{service: service}
}

type scrapeRequest struct {
	URL            string `json:"url"`
	ConversationID string `json:"conversation_id"`
}

// HandleScrape fetches a URL, converts it to markdown and stores the result.
// The entry is returned even on scrape failure so the caller can surface the
// error state.
func (h *ScraperHandler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "url is required")
		return
	}

	entry, err := h.service.Scrape(r.Context(), req.URL, req.ConversationID)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"kind":  "transport",
			"entry": entry,
		})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleContent returns one stored scrape entry by id.
func (h *ScraperHandler) HandleContent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid scrape entry id")
		return
	}
	entry, err := h.service.Entry(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "not_found", "scrape entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleDelete removes a stored scrape entry. Deleting an absent entry
// succeeds.
func (h *ScraperHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid scrape entry id")
		return
	}
	if err := h.service.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleConversation lists all scrape entries recorded for a conversation.
func (h *ScraperHandler) HandleConversation(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ConversationEntries(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}
