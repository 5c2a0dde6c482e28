package web

import (
	"encoding/json"
	"log"
	"net/http"
)

// Request guards shared by the handlers.
const (
	maxRequestBody  = 1 << 20 // 1MB
	maxMessageRunes = 20000
)

// writeJSON serializes v with the given status. Encoding failures are logged
// but cannot be reported to the client — the status line is already out.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Web] JSON encode error: %v", err)
	}
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"` // "corrupted", "transport", "not_found", "bad_request"
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

// decodeJSON parses a size-capped JSON request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
