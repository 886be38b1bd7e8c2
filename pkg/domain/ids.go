// Package domain holds the identifier types shared across modules. IDs are
// distinct uuid-backed types so an application ID can never be passed where an
// audit entry ID is expected.
//
// Construct via the Parse functions at trust boundaries to enforce
// validity; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "ipregistry/pkg/domain-errors"
)

// ApplicationID identifies one IP-registration submission.
type ApplicationID uuid.UUID

// EntryID identifies one audit trail entry.
type EntryID uuid.UUID

// NewApplicationID returns a fresh random application ID.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewEntryID returns a fresh random audit entry ID.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

// ParseApplicationID constructs an ApplicationID from external input.
//
// Errors: returns CodeBadRequest when the value is empty, malformed or the
// nil UUID.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parse(s)
	if err != nil {
		return ApplicationID{}, err
	}
	return ApplicationID(u), nil
}

// ParseEntryID constructs an EntryID from external input.
func ParseEntryID(s string) (EntryID, error) {
	u, err := parse(s)
	if err != nil {
		return EntryID{}, err
	}
	return EntryID(u), nil
}

func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "id cannot be the nil UUID")
	}
	return u, nil
}

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id ApplicationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID in canonical UUID form so JSON carries a string.
func (id ApplicationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id EntryID) String() string { return uuid.UUID(id).String() }
func (id EntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id EntryID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *EntryID) UnmarshalText(b []byte) error {
	parsed, err := ParseEntryID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
