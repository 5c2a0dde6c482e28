package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/courtside-ai/courtside/internal/llm"
	"github.com/courtside-ai/courtside/internal/token"
	"github.com/courtside-ai/courtside/internal/util"
)

// ErrContextCorrupted reports a conversation whose system message lost its
// documents markers and no valid copy remained to restore from. The
// conversation cannot safely continue until it is reset; callers should
// distinguish this from transport failures, which are merely retryable.
var ErrContextCorrupted = errors.New("conversation context corrupted beyond restore")

// Config carries the settings shared by every conversation's manager.
type Config struct {
	// SystemPrompt is the raw prompt template. A prompt without a usable
	// documents marker pair is repaired once at construction.
	SystemPrompt string
	// TokenBudget is the ledger's token ceiling; eviction triggers when the
	// total reaches it. 0 disables eviction.
	TokenBudget int
	// ProtectedHead is the number of leading ledger entries eviction must
	// never remove. Values below 1 are raised to 1 (the system message).
	ProtectedHead int
	// Counter prices message text in tokens.
	Counter token.Counter
}

// Manager owns one conversation's context: the document store, the prompt
// template, and the token-accounted message ledger. It keeps the templated
// system string and the ledger head mutually consistent, and restores from
// the ledger when the cached string is found corrupted.
//
// All mutating operations are mutually exclusive; RunTurn holds the lock for
// the whole turn including the model call, so turns on the same conversation
// serialize while other conversations proceed independently.
type Manager struct {
	mu        sync.RWMutex
	tmpl      *Template
	docs      *DocumentStore
	ledger    *Ledger
	counter   token.Counter
	budget    int
	protected int
	system    string // cached flat system prompt, derived from tmpl + docs
	exhausted bool   // last eviction run could not fit the budget
}

// NewManager builds a manager with an empty document store and a ledger
// seeded with the rendered system message.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Counter == nil {
		return nil, errors.New("chat: Config.Counter is required")
	}
	protected := cfg.ProtectedHead
	if protected < 1 {
		protected = 1
	}

	m := &Manager{
		tmpl:      NewTemplate(cfg.SystemPrompt),
		docs:      NewDocumentStore(),
		ledger:    NewLedger(),
		counter:   cfg.Counter,
		budget:    cfg.TokenBudget,
		protected: protected,
	}

	system := m.tmpl.Render(nil)
	n, err := m.counter.Count(system)
	if err != nil {
		return nil, fmt.Errorf("count system prompt: %w", err)
	}
	m.ledger.Append(llm.RoleSystem, system, n)
	m.system = system
	return m, nil
}

// AddDocument upserts a document and refreshes the system message. Empty
// content is ignored: the ingestion pipeline occasionally produces blank
// pages and those must not blank an existing document.
func (m *Manager) AddDocument(key, content string) error {
	if content == "" {
		log.Printf("[Context] Ignoring empty content for %s", key)
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs.Upsert(key, content)
	if err := m.refreshSystem(); err != nil {
		return err
	}
	log.Printf("[Context] Added document %s (%d docs, %d tokens total)", key, m.docs.Len(), m.ledger.TotalTokens())
	return nil
}

// RemoveDocument removes a document by key and reports whether it was
// present. Removing an absent key leaves the ledger byte-for-byte unchanged.
func (m *Manager) RemoveDocument(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.docs.Remove(key) {
		return false, nil
	}
	if err := m.refreshSystem(); err != nil {
		return true, err
	}
	log.Printf("[Context] Removed document %s (%d docs remain)", key, m.docs.Len())
	return true, nil
}

// ClearDocuments empties the document store and refreshes the system message.
func (m *Manager) ClearDocuments() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs.Clear()
	return m.refreshSystem()
}

// AppendUserTurn verifies system-message integrity, appends the user message,
// and returns the full ordered message list ready for the model transport.
func (m *Manager) AppendUserTurn(text string) ([]llm.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendUserTurn(text)
}

// AppendAssistantTurn appends the assistant reply and runs rolling eviction.
func (m *Manager) AppendAssistantTurn(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendAssistantTurn(text)
}

// RunTurn executes one full exchange: append the user message, call the
// model via complete, append the reply, evict. The manager's lock is held
// throughout, so concurrent turns on the same conversation serialize; the
// transport owns any timeout or cancellation via ctx. A transport error is
// returned unchanged, with the user message left in the ledger.
func (m *Manager) RunTurn(ctx context.Context, userText string, complete func(context.Context, []llm.Message) (llm.Message, error)) (llm.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs, err := m.appendUserTurn(userText)
	if err != nil {
		return llm.Message{}, err
	}
	reply, err := complete(ctx, msgs)
	if err != nil {
		return llm.Message{}, err
	}
	if err := m.appendAssistantTurn(reply.Content); err != nil {
		return llm.Message{}, err
	}
	return reply, nil
}

// DocumentsPreview returns the current document section's inner text, for
// diagnostics.
func (m *Manager) DocumentsPreview() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	section, err := documentSection(m.system)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(section), nil
}

// Exhausted reports whether the last eviction run left the ledger over
// budget with only the protected head remaining.
func (m *Manager) Exhausted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exhausted
}

// Stats is a point-in-time snapshot of a conversation's context accounting.
type Stats struct {
	Messages    int  `json:"messages"`
	Documents   int  `json:"documents"`
	TotalTokens int  `json:"total_tokens"`
	Archived    int  `json:"archived"`
	Exhausted   bool `json:"eviction_exhausted"`
}

// Snapshot returns current context accounting.
func (m *Manager) Snapshot() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Messages:    m.ledger.Len(),
		Documents:   m.docs.Len(),
		TotalTokens: m.ledger.TotalTokens(),
		Archived:    len(m.ledger.archived),
		Exhausted:   m.exhausted,
	}
}

// Transcript returns the live message list in transport format, without an
// integrity check. Intended for diagnostics and topic generation.
func (m *Manager) Transcript() []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger.Messages()
}

// refreshSystem re-renders the system message from the canonical template and
// document snapshot, then writes it to both the cache and the ledger head.
// Callers must hold the write lock.
func (m *Manager) refreshSystem() error {
	system := m.tmpl.Render(m.docs.Snapshot())
	n, err := m.counter.Count(system)
	if err != nil {
		return fmt.Errorf("count system prompt: %w", err)
	}
	if err := m.ledger.ReplaceHead(system, n); err != nil {
		return err
	}
	m.system = system
	return nil
}

// ensureIntegrity verifies the cached system string still carries its marker
// pair before any model-facing read. When the cache is corrupted but the
// ledger head holds a valid copy, the cache resynchronizes to it; when no
// valid source exists the conversation is unusable.
func (m *Manager) ensureIntegrity() error {
	if validSystem(m.system) {
		return nil
	}
	if m.ledger.Len() > 0 && m.ledger.At(0).Role == llm.RoleSystem && validSystem(m.ledger.At(0).Content) {
		log.Printf("[Context] System cache corrupted, restored from ledger head")
		m.system = m.ledger.At(0).Content
		return nil
	}
	log.Printf("[Context] System message corrupted with no restore source")
	return ErrContextCorrupted
}

func (m *Manager) appendUserTurn(text string) ([]llm.Message, error) {
	if err := m.ensureIntegrity(); err != nil {
		return nil, err
	}
	n, err := m.counter.Count(text)
	if err != nil {
		return nil, fmt.Errorf("count user message: %w", err)
	}
	m.ledger.Append(llm.RoleUser, text, n)
	log.Printf("[Context] User turn: %s (%d tokens, %d total)", util.TruncateRunes(text, 120), n, m.ledger.TotalTokens())
	return m.ledger.Messages(), nil
}

func (m *Manager) appendAssistantTurn(text string) error {
	n, err := m.counter.Count(text)
	if err != nil {
		return fmt.Errorf("count assistant message: %w", err)
	}
	m.ledger.Append(llm.RoleAssistant, text, n)

	if m.budget <= 0 {
		return nil
	}
	evicted, exhausted := evictOldest(m.ledger, m.budget, m.protected)
	m.exhausted = exhausted
	if evicted > 0 {
		log.Printf("[Context] Evicted %d oldest messages (%d tokens remain, budget %d)", evicted, m.ledger.TotalTokens(), m.budget)
	}
	if exhausted {
		log.Printf("[Context] Eviction exhausted: %d tokens with only the protected head, budget %d", m.ledger.TotalTokens(), m.budget)
	}
	return nil
}
