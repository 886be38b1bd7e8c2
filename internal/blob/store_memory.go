package blob

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ipregistry/pkg/platform/sentinel"
)

// MemoryStore holds documents in process memory. Suitable for local runs
// and tests; a deployment would sit this interface over object storage.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) Upload(_ context.Context, name, contentType string, content []byte) (string, error) {
	doc := Document{
		ID:          uuid.NewString(),
		Name:        name,
		ContentType: contentType,
		Content:     content,
	}

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()

	return "/documents/" + doc.ID, nil
}

func (s *MemoryStore) Fetch(_ context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, sentinel.ErrNotFound
	}
	return doc, nil
}
