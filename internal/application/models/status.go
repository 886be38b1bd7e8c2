package models

import (
	dErrors "ipregistry/pkg/domain-errors"
)

// Status is an application's position in the review workflow.
//
// Invariant: the value must be one of the five workflow states. Construct via
// ParseStatus at trust boundaries; direct casting bypasses validation.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusInReview Status = "in-review"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusDraft:    true,
	StatusPending:  true,
	StatusInReview: true,
	StatusApproved: true,
	StatusRejected: true,
}

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "status cannot be empty")
	}
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid status: "+s)
	}
	return st, nil
}

// IsValid checks if the status is one of the workflow states.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Terminal reports whether no further transition is permitted out of s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo reports whether the workflow permits moving from s to next.
// A draft can only be submitted to pending; pending and in-review move freely
// between each other and into either terminal state; terminal states admit
// nothing. Same-state moves are not transitions and return false.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next || s.Terminal() || !next.IsValid() {
		return false
	}
	switch s {
	case StatusDraft:
		return next == StatusPending
	case StatusPending, StatusInReview:
		return next == StatusPending || next == StatusInReview || next.Terminal()
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }
