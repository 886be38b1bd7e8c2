// Package models holds the Application record, its append-only audit trail
// entry, and the review workflow state machine.
package models

import (
	"encoding/json"
	"time"

	id "ipregistry/pkg/domain"
	dErrors "ipregistry/pkg/domain-errors"
)

// Kind is the category of IP being registered. Immutable after creation.
type Kind string

const (
	KindPatent    Kind = "patent"
	KindTrademark Kind = "trademark"
	KindCopyright Kind = "copyright"
)

var validKinds = map[Kind]bool{
	KindPatent:    true,
	KindTrademark: true,
	KindCopyright: true,
}

// ParseKind constructs a Kind from external input.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "kind cannot be empty")
	}
	k := Kind(s)
	if !validKinds[k] {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid kind: "+s)
	}
	return k, nil
}

func (k Kind) String() string { return string(k) }

// Application is one IP-registration submission. Status always equals the
// status of the newest entry in the application's audit trail; the engine is
// the only writer and keeps the two in step.
type Application struct {
	ID        id.ApplicationID `json:"id"`
	Owner     string           `json:"owner"`
	Kind      Kind             `json:"kind"`
	Status    Status           `json:"status"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// AuditEntry records one status the application has held, including the
// initial draft. Entries are immutable once written. Seq is assigned by the
// store at insertion and breaks created_at ties.
type AuditEntry struct {
	ID            id.EntryID       `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Status        Status           `json:"status"`
	Actor         string           `json:"actor"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	Seq           int64            `json:"-"`
}

// ListFilter narrows List results. Owner empty means all owners (admin only,
// enforced by the engine). Nil Status/Kind mean no constraint.
type ListFilter struct {
	Owner  string
	Status *Status
	Kind   *Kind
}
