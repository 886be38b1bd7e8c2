// Package draft persists in-progress multi-step form state so an applicant
// can resume where they left off. Drafts are a resumability aid owned by the
// client session: losing one has no correctness consequences for submitted
// applications, which is why autosave is fire-and-forget.
package draft

import (
	"context"
	"encoding/json"
	"time"
)

// Draft is the last-known partial form payload for one (form, principal) key.
type Draft struct {
	FormID    string          `json:"form_id"`
	Principal string          `json:"-"`
	Data      json.RawMessage `json:"data"`
	SavedAt   time.Time       `json:"saved_at"`
}

// Store persists drafts. Implementations key by (formID, principal); Get
// returns sentinel.ErrNotFound for a missing or cleared draft, and Delete is
// idempotent.
type Store interface {
	Put(ctx context.Context, d Draft) error
	Get(ctx context.Context, formID, principal string) (Draft, error)
	Delete(ctx context.Context, formID, principal string) error
}
