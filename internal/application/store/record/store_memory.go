// Package record persists Application records. The postgres store is the
// production path; the memory store backs unit tests and local development
// with identical semantics.
package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"ipregistry/internal/application/models"
	id "ipregistry/pkg/domain"
	"ipregistry/pkg/platform/sentinel"
)

// MemoryStore is an in-memory application record store.
type MemoryStore struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]models.Application
}

func NewMemory() *MemoryStore {
	return &MemoryStore{apps: make(map[id.ApplicationID]models.Application)}
}

// Create inserts a new record. Returns sentinel.ErrConflict when the ID is
// already taken.
func (s *MemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.apps[app.ID]; ok {
		return sentinel.ErrConflict
	}
	s.apps[app.ID] = *app
	return nil
}

// FindByID returns a copy of the record or sentinel.ErrNotFound.
func (s *MemoryStore) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &app, nil
}

// List returns records matching the filter, newest first.
func (s *MemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Application
	for _, app := range s.apps {
		if filter.Owner != "" && app.Owner != filter.Owner {
			continue
		}
		if filter.Status != nil && app.Status != *filter.Status {
			continue
		}
		if filter.Kind != nil && app.Kind != *filter.Kind {
			continue
		}
		app := app
		out = append(out, &app)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

// CompareAndSetStatus is the only status mutator. It succeeds only when the
// stored status still equals expected, returning sentinel.ErrConflict when a
// concurrent transition got there first.
func (s *MemoryStore) CompareAndSetStatus(_ context.Context, appID id.ApplicationID, expected, next models.Status, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[appID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if app.Status != expected {
		return sentinel.ErrConflict
	}
	app.Status = next
	app.UpdatedAt = updatedAt
	s.apps[appID] = app
	return nil
}
