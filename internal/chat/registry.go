package chat

import (
	"fmt"
	"sync"
	"time"
)

// minCleanupInterval is the smallest allowed TTL to prevent degenerate ticker intervals.
const minCleanupInterval = time.Millisecond

// conversation pairs a manager with its last-use timestamp for TTL eviction.
type conversation struct {
	manager  *Manager
	lastUsed time.Time
}

// Registry is a thread-safe map from conversation ID to its context manager,
// with TTL eviction of idle conversations. Each conversation owns exactly
// one manager; managers are created on first use and discarded on Delete or
// idle timeout. NOT designed for multi-replica deployments; matches the
// single-process architecture of the service.
type Registry struct {
	mu     sync.RWMutex
	convos map[string]*conversation
	config Config
	ttl    time.Duration // inactivity TTL, e.g. 30 minutes
	done   chan struct{} // closed by Close() to stop the cleanup goroutine
}

// NewRegistry creates a Registry whose managers are built from cfg.
// A background goroutine periodically evicts idle conversations. Call
// Close() when the registry is no longer needed to stop the goroutine.
func NewRegistry(cfg Config, ttl time.Duration) *Registry {
	if ttl < minCleanupInterval {
		ttl = minCleanupInterval
	}
	r := &Registry{
		convos: make(map[string]*conversation),
		config: cfg,
		ttl:    ttl,
		done:   make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// GetOrCreate returns the manager for id, creating it on first use.
func (r *Registry) GetOrCreate(id string) (*Manager, error) {
	if id == "" {
		return nil, fmt.Errorf("conversation id cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convos[id]
	if !ok {
		m, err := NewManager(r.config)
		if err != nil {
			return nil, fmt.Errorf("create conversation %s: %w", id, err)
		}
		c = &conversation{manager: m}
		r.convos[id] = c
	}
	c.lastUsed = time.Now()
	return c.manager, nil
}

// Get returns the manager for id, or nil when the conversation is unknown.
func (r *Registry) Get(id string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convos[id]
	if !ok {
		return nil
	}
	c.lastUsed = time.Now()
	return c.manager
}

// Delete explicitly removes a conversation (e.g. a user reset after
// corruption). Unknown IDs are a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convos, id)
}

// Count returns the number of live conversations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.convos)
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (r *Registry) Close() {
	select {
	case <-r.done:
		// already closed
	default:
		close(r.done)
	}
}

// cleanupLoop periodically removes conversations idle past the TTL.
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.mu.Lock()
			cutoff := time.Now().Add(-r.ttl)
			for id, c := range r.convos {
				if c.lastUsed.Before(cutoff) {
					delete(r.convos, id)
				}
			}
			r.mu.Unlock()
		}
	}
}
