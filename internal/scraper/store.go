package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store persists scrape entries as JSON files, one per entry ID, under a
// storage directory. Matches the single-process architecture: no locking
// beyond the filesystem, entries are written whole.
type Store struct {
	dir string
}

// fileRecord is the on-disk shape; the entry nests under "document" so the
// files double as importable document payloads.
type fileRecord struct {
	Document Entry `json:"document"`
}

// NewStore creates the storage directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the entry to <dir>/<id>.json, replacing any previous version.
func (s *Store) Save(e *Entry) error {
	data, err := json.MarshalIndent(fileRecord{Document: *e}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry %s: %w", e.ID, err)
	}
	path := s.path(e.ID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write entry %s: %w", e.ID, err)
	}
	return nil
}

// Load reads the entry with the given ID. A missing entry returns (nil, nil).
func (s *Store) Load(id uuid.UUID) (*Entry, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", id, err)
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", id, err)
	}
	return &rec.Document, nil
}

// ByConversation returns all stored entries belonging to a conversation.
func (s *Store) ByConversation(conversationID string) ([]Entry, error) {
	names, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list storage dir: %w", err)
	}
	var out []Entry
	for _, n := range names {
		if n.IsDir() || !strings.HasSuffix(n.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, n.Name()))
		if err != nil {
			continue // a concurrently removed file is not an error
		}
		var rec fileRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue // skip unreadable records rather than failing the listing
		}
		if rec.Document.ConversationID == conversationID {
			out = append(out, rec.Document)
		}
	}
	return out, nil
}

// Delete removes a stored entry. Missing entries are a no-op.
func (s *Store) Delete(id uuid.UUID) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return nil
}

func (s *Store) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".json")
}
