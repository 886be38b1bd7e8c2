// Package trail persists the append-only audit trail. Entries are never
// updated or deleted; the trail for an application, ordered oldest-first, is
// a valid walk of the review workflow.
package trail

import (
	"context"
	"sort"
	"sync"

	"ipregistry/internal/application/models"
	id "ipregistry/pkg/domain"
)

// MemoryStore is an in-memory audit trail store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[id.ApplicationID][]models.AuditEntry
	seq     int64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[id.ApplicationID][]models.AuditEntry)}
}

// Append writes one immutable entry, assigning its insertion sequence.
func (s *MemoryStore) Append(_ context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry.Seq = s.seq
	s.entries[entry.ApplicationID] = append(s.entries[entry.ApplicationID], *entry)
	return nil
}

// ListByApplication returns the application's entries ordered oldest-first,
// created_at ties broken by insertion sequence.
func (s *MemoryStore) ListByApplication(_ context.Context, appID id.ApplicationID) ([]*models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.entries[appID]
	out := make([]*models.AuditEntry, len(stored))
	for i := range stored {
		entry := stored[i]
		out[i] = &entry
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}
