package draft

import (
	"context"
	"sync"

	"ipregistry/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store used by tests and redis-less local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]Draft
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Draft)}
}

func memoryKey(formID, principal string) string {
	return principal + "/" + formID
}

func (s *MemoryStore) Put(_ context.Context, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[memoryKey(d.FormID, d.Principal)] = d
	return nil
}

func (s *MemoryStore) Get(_ context.Context, formID, principal string) (Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[memoryKey(formID, principal)]
	if !ok {
		return Draft{}, sentinel.ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) Delete(_ context.Context, formID, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, memoryKey(formID, principal))
	return nil
}
