package chat

// Document is one keyed piece of externally supplied text (typically a
// scraped page, identified by its source URL) injected into the system
// prompt's documents section.
type Document struct {
	Key     string
	Content string
}

// DocumentStore keeps documents in insertion order. Upserting an existing key
// replaces its content but keeps the key's original position, so document
// indices stay stable across refreshes of the same source.
//
// Snapshot returns an independent copy; a render working from a snapshot can
// never observe a half-applied mutation.
type DocumentStore struct {
	order []string
	byKey map[string]string
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{byKey: make(map[string]string)}
}

// Upsert inserts or replaces the content for key.
func (s *DocumentStore) Upsert(key, content string) {
	if _, ok := s.byKey[key]; !ok {
		s.order = append(s.order, key)
	}
	s.byKey[key] = content
}

// Remove deletes key and reports whether it was present. Removing an absent
// key is a no-op.
func (s *DocumentStore) Remove(key string) bool {
	if _, ok := s.byKey[key]; !ok {
		return false
	}
	delete(s.byKey, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the store.
func (s *DocumentStore) Clear() {
	s.order = nil
	s.byKey = make(map[string]string)
}

// Len returns the number of stored documents.
func (s *DocumentStore) Len() int { return len(s.order) }

// Snapshot returns the documents in insertion order. The returned slice does
// not alias store internals.
func (s *DocumentStore) Snapshot() []Document {
	docs := make([]Document, 0, len(s.order))
	for _, k := range s.order {
		docs = append(docs, Document{Key: k, Content: s.byKey[k]})
	}
	return docs
}
