package draft

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	dErrors "ipregistry/pkg/domain-errors"
	"ipregistry/pkg/platform/sentinel"
)

const (
	defaultDebounce = time.Second
	flushWriteLimit = 5 * time.Second
)

// pendingSave is an in-flight write waiting out its debounce window.
// Repeated saves for the same key replace the draft and reset the timer,
// so only the last value in a burst reaches the store.
type pendingSave struct {
	draft Draft
	timer *time.Timer
}

// Service coalesces rapid draft saves before persisting them. Writes fire
// after a quiet period per (form, principal) key; reads see the in-flight
// value so a caller never observes its own save as missing.
type Service struct {
	store    Store
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSave
	closed  bool
}

func NewService(store Store, logger *slog.Logger, debounce time.Duration) *Service {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Service{
		store:    store,
		logger:   logger,
		debounce: debounce,
		pending:  make(map[string]*pendingSave),
	}
}

func pendingKey(formID, principal string) string {
	return principal + "/" + formID
}

// Save schedules the draft for persistence after the debounce window.
// A save arriving inside the window replaces the scheduled value and
// restarts the window: last write wins.
func (s *Service) Save(ctx context.Context, formID, principal string, data json.RawMessage) (Draft, error) {
	if len(data) == 0 {
		return Draft{}, dErrors.New(dErrors.CodeBadRequest, "draft data is required")
	}

	d := Draft{
		FormID:    formID,
		Principal: principal,
		Data:      data,
		SavedAt:   time.Now().UTC(),
	}
	key := pendingKey(formID, principal)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Draft{}, dErrors.New(dErrors.CodeUnavailable, "draft service is shutting down")
	}

	if p, ok := s.pending[key]; ok {
		p.draft = d
		p.timer.Reset(s.debounce)
		return d, nil
	}

	p := &pendingSave{draft: d}
	p.timer = time.AfterFunc(s.debounce, func() { s.flushKey(key) })
	s.pending[key] = p
	return d, nil
}

// Load returns the current draft. A save still inside its debounce window
// is returned in preference to whatever the store holds.
func (s *Service) Load(ctx context.Context, formID, principal string) (Draft, error) {
	key := pendingKey(formID, principal)

	s.mu.Lock()
	if p, ok := s.pending[key]; ok {
		d := p.draft
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()

	d, err := s.store.Get(ctx, formID, principal)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Draft{}, dErrors.New(dErrors.CodeNotFound, "draft not found")
	}
	if err != nil {
		return Draft{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "load draft")
	}
	return d, nil
}

// Clear discards the draft, cancelling any write still inside its debounce
// window. Clearing an absent draft succeeds. The store delete happens under
// the service mutex so a timer that already fired cannot interleave its Put
// with the delete and resurrect the draft.
func (s *Service) Clear(ctx context.Context, formID, principal string) error {
	key := pendingKey(formID, principal)

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
		delete(s.pending, key)
	}

	if err := s.store.Delete(ctx, formID, principal); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "clear draft")
	}
	return nil
}

// Flush persists every pending draft immediately and stops accepting new
// saves. Called on shutdown so debounced writes are not lost.
func (s *Service) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, p := range s.pending {
		p.timer.Stop()
		if err := s.store.Put(ctx, p.draft); err != nil {
			s.logger.Error("flush draft", "form_id", p.draft.FormID, "error", err)
		}
		delete(s.pending, key)
	}
}

// flushKey runs on the debounce timer. The write uses a background context
// with its own deadline; the request that scheduled it is long gone. All
// store writes happen under the service mutex, which orders them against
// Clear's delete.
func (s *Service) flushKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[key]
	if !ok {
		return
	}
	delete(s.pending, key)

	ctx, cancel := context.WithTimeout(context.Background(), flushWriteLimit)
	defer cancel()
	if err := s.store.Put(ctx, p.draft); err != nil {
		s.logger.Error("persist draft", "form_id", p.draft.FormID, "error", err)
	}
}
