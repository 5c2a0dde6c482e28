package web

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthInfo holds runtime status for the health endpoint.
type HealthInfo struct {
	LLMModel          string     // from config
	TokenEncoding     string     // token counter encoding name
	ScraperStorageDir string     // scrape store location
	ConversationCount func() int // callback to conversation registry
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	info      HealthInfo
	startTime time.Time
}

// NewHealthHandler creates a health handler recording the server start time.
func NewHealthHandler(info HealthInfo) *HealthHandler {
	return &HealthHandler{info: info, startTime: time.Now()}
}

type healthResponse struct {
	Status     string           `json:"status"`
	UptimeSecs int64            `json:"uptime_seconds"`
	Components healthComponents `json:"components"`
}

type healthComponents struct {
	LLM           healthLLM           `json:"llm"`
	Tokenizer     healthTokenizer     `json:"tokenizer"`
	Scraper       healthScraper       `json:"scraper"`
	Conversations healthConversations `json:"conversations"`
}

type healthLLM struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}
type healthTokenizer struct {
	Encoding string `json:"encoding"`
}
type healthScraper struct {
	StorageDir string `json:"storage_dir"`
}
type healthConversations struct {
	Active int `json:"active"`
}

// ServeHTTP handles GET /api/health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	llmStatus := "ok"
	if h.info.LLMModel == "" {
		llmStatus = "degraded"
	}

	conversations := 0
	if h.info.ConversationCount != nil {
		conversations = h.info.ConversationCount()
	}

	status := "ok"
	if llmStatus == "degraded" {
		status = "degraded"
	}

	resp := healthResponse{
		Status:     status,
		UptimeSecs: int64(time.Since(h.startTime).Seconds()),
		Components: healthComponents{
			LLM:           healthLLM{Status: llmStatus, Model: h.info.LLMModel},
			Tokenizer:     healthTokenizer{Encoding: h.info.TokenEncoding},
			Scraper:       healthScraper{StorageDir: h.info.ScraperStorageDir},
			Conversations: healthConversations{Active: conversations},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
