package chat

import (
	"errors"
	"fmt"

	"github.com/courtside-ai/courtside/internal/llm"
)

// Message is one ledger entry: a chat message plus its token cost.
type Message struct {
	Role    string
	Content string
	Tokens  int
}

// Ledger is the ordered, token-accounted message history of one conversation.
// The running total equals the sum of the entries' token counts at all
// times; ReplaceHead recomputes it as a full sum to rule out incremental
// drift. Entries removed by eviction move to an archive kept for diagnostics
// only — they are never replayed into the ledger.
type Ledger struct {
	entries  []Message
	total    int
	archived []Message
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger { return &Ledger{} }

// Append adds a message at the tail.
func (l *Ledger) Append(role, content string, tokens int) {
	l.entries = append(l.entries, Message{Role: role, Content: content, Tokens: tokens})
	l.total += tokens
}

// ReplaceHead swaps the head entry's content and token count in place. The
// total is recomputed from scratch rather than adjusted by a delta.
func (l *Ledger) ReplaceHead(content string, tokens int) error {
	if len(l.entries) == 0 {
		return errors.New("ledger has no head to replace")
	}
	l.entries[0].Content = content
	l.entries[0].Tokens = tokens
	total := 0
	for _, m := range l.entries {
		total += m.Tokens
	}
	l.total = total
	return nil
}

// RemoveAt moves the entry at index i to the archive and returns it.
// The head at index 0 can never be removed.
func (l *Ledger) RemoveAt(i int) (Message, error) {
	if i <= 0 || i >= len(l.entries) {
		return Message{}, fmt.Errorf("ledger index %d is not removable", i)
	}
	m := l.entries[i]
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.archived = append(l.archived, m)
	l.total -= m.Tokens
	return m, nil
}

// Len returns the number of live entries.
func (l *Ledger) Len() int { return len(l.entries) }

// TotalTokens returns the running token total of the live entries.
func (l *Ledger) TotalTokens() int { return l.total }

// At returns the entry at index i. It panics on out-of-range indices, like a
// slice access.
func (l *Ledger) At(i int) Message { return l.entries[i] }

// Archived returns a copy of the evicted entries, oldest first.
func (l *Ledger) Archived() []Message {
	out := make([]Message, len(l.archived))
	copy(out, l.archived)
	return out
}

// Messages converts the live entries into the transport message format.
func (l *Ledger) Messages() []llm.Message {
	msgs := make([]llm.Message, len(l.entries))
	for i, m := range l.entries {
		msgs[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return msgs
}

// evictOldest applies rolling FIFO eviction: while the ledger meets or
// exceeds budget and evictable entries remain, the oldest entry past the
// protected head is archived. It reports how many entries were evicted and
// whether the ledger is still over budget with only the protected head left
// (eviction exhausted — a soft condition, processing continues oversized).
func evictOldest(l *Ledger, budget, protectedHead int) (evicted int, exhausted bool) {
	for l.TotalTokens() >= budget && l.Len() > protectedHead {
		if _, err := l.RemoveAt(protectedHead); err != nil {
			break
		}
		evicted++
	}
	exhausted = l.TotalTokens() >= budget && l.Len() <= protectedHead
	return evicted, exhausted
}
