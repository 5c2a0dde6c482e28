package llm

import "context"

// Message represents a chat message for LLM communication.
type Message struct {
	Role    string `json:"role"`    // "system", "user" or "assistant"
	Content string `json:"content"` // the message text
}

// Provider is the model-transport boundary. Implementations talk to an
// OpenAI-compatible chat completions endpoint and may retry transient
// failures internally; the caller receives the final error unchanged and
// applies no retry of its own.
type Provider interface {
	// Complete sends the ordered message list and returns the assistant reply.
	Complete(ctx context.Context, messages []Message) (Message, error)
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
