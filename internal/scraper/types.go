// Package scraper fetches web pages, converts them to markdown, and persists
// the results. It is the ingestion collaborator feeding the chat context:
// the context core never fetches or cleans content itself.
package scraper

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of a scrape entry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusLoading  Status = "loading"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Entry is one scraped URL and its extracted content.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	URL            string    `json:"url"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Status         Status    `json:"status"`
	RawContent     string    `json:"raw_content,omitempty"` // markdown before LLM cleaning
	Content        string    `json:"content,omitempty"`     // final (possibly LLM-cleaned) markdown
	Error          string    `json:"error,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Ready reports whether the entry's content can be attached to a
// conversation context.
func (e *Entry) Ready() bool {
	return e.Status == StatusComplete && e.Content != ""
}
