package service

import (
	"context"
	"errors"

	"ipregistry/internal/application/models"
	"ipregistry/internal/identity"
	id "ipregistry/pkg/domain"
	dErrors "ipregistry/pkg/domain-errors"
	"ipregistry/pkg/platform/sentinel"
)

// RequestTransition validates and applies one status change. The guard runs
// against a fresh read, and the conditional status update plus the audit
// append commit as one unit; on a lost race the whole cycle repeats, up to
// the configured bound, before the conflict is surfaced.
//
// A request whose target equals the current status is an idempotent no-op:
// the unchanged application is returned and nothing is written. The no-op
// path still enforces the read visibility rule — only the owner or an admin
// may observe the application through it.
//
// Errors: CodeNotFound, CodeInvalidTransition, CodeForbidden, CodeConflict
// (bounded retry exhausted), CodeUnavailable.
func (e *Engine) RequestTransition(ctx context.Context, appID id.ApplicationID, newStatus models.Status, actor identity.Principal, notes string) (*models.Application, error) {
	if !newStatus.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid status: "+newStatus.String())
	}

	for attempt := 0; attempt < e.retries; attempt++ {
		app, err := e.records.FindByID(ctx, appID)
		if err != nil {
			return nil, e.translateStoreErr(err, "find application")
		}

		if app.Status == newStatus {
			if !actor.Admin && actor.ID != app.Owner {
				e.metrics.ObserveRejection(string(dErrors.CodeForbidden))
				return nil, dErrors.New(dErrors.CodeForbidden, "not the application owner")
			}
			return app, nil
		}
		if err := e.guard(app, newStatus, actor); err != nil {
			e.metrics.ObserveRejection(string(dErrors.CodeOf(err)))
			return nil, err
		}

		updated, err := e.commit(ctx, app, newStatus, actor, notes)
		if errors.Is(err, sentinel.ErrConflict) {
			e.logger.InfoContext(ctx, "transition lost race, retrying",
				"application_id", appID.String(),
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			return nil, e.translateStoreErr(err, "apply transition")
		}

		e.metrics.ObserveTransition(app.Status.String(), newStatus.String())
		e.logger.InfoContext(ctx, "transition committed",
			"application_id", appID.String(),
			"from", app.Status.String(),
			"to", newStatus.String(),
			"actor", actor.ID,
		)
		e.publish(updated, app.Status, newStatus, actor.ID, notes)
		return updated, nil
	}

	e.metrics.ObserveConflict()
	return nil, dErrors.New(dErrors.CodeConflict, "conflicting concurrent transition")
}

// guard enforces the workflow and the actor's capability against the freshly
// read state. Workflow validity is checked before authorization so that an
// impossible move (draft straight to in-review) reads as invalid for every
// caller, not as a permissions problem.
func (e *Engine) guard(app *models.Application, newStatus models.Status, actor identity.Principal) error {
	if app.Status.Terminal() {
		return dErrors.New(dErrors.CodeInvalidTransition, app.Status.String()+" is terminal")
	}
	if !app.Status.CanTransitionTo(newStatus) {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"cannot transition from "+app.Status.String()+" to "+newStatus.String())
	}

	if app.Status == models.StatusDraft {
		// Submission is the owner's act alone; admins pick the application
		// up only once it reaches the review queue.
		if actor.ID != app.Owner {
			return dErrors.New(dErrors.CodeForbidden, "only the owner may submit a draft")
		}
		return nil
	}
	if !actor.Admin {
		return dErrors.New(dErrors.CodeForbidden, "admin capability required")
	}
	return nil
}

// commit applies the conditional status update and appends the audit entry
// in one unit of work. sentinel.ErrConflict propagates untranslated so the
// caller can retry the read-guard-write cycle.
func (e *Engine) commit(ctx context.Context, app *models.Application, newStatus models.Status, actor identity.Principal, notes string) (*models.Application, error) {
	now := e.now()
	entry := &models.AuditEntry{
		ID:            id.NewEntryID(),
		ApplicationID: app.ID,
		Status:        newStatus,
		Actor:         actor.ID,
		Notes:         notes,
		CreatedAt:     now,
	}

	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := e.records.CompareAndSetStatus(ctx, app.ID, app.Status, newStatus, now); err != nil {
			return err
		}
		return e.trail.Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	updated := *app
	updated.Status = newStatus
	updated.UpdatedAt = now
	return &updated, nil
}
