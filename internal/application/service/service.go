// Package service implements the application lifecycle engine: submission,
// the five-state review workflow, and the pairing of every status change with
// its audit trail entry.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"ipregistry/internal/application/metrics"
	"ipregistry/internal/application/models"
	"ipregistry/internal/identity"
	"ipregistry/internal/notifier"
	id "ipregistry/pkg/domain"
	dErrors "ipregistry/pkg/domain-errors"
	"ipregistry/pkg/platform/sentinel"
)

// RecordStore is the current-state record per application.
// CompareAndSetStatus is the sole status mutator and the engine's point of
// serialization against concurrent transitions.
type RecordStore interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Application, error)
	CompareAndSetStatus(ctx context.Context, appID id.ApplicationID, expected, next models.Status, updatedAt time.Time) error
}

// TrailStore is the append-only audit log. Append never updates or deletes
// existing entries.
type TrailStore interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.AuditEntry, error)
}

// Engine validates and applies status changes, keeping the record store and
// the audit trail in step. It is the only writer of either.
type Engine struct {
	records RecordStore
	trail   TrailStore
	tx      StoreTx
	events  notifier.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	retries int
	now     func() time.Time
}

// New constructs the engine. retries bounds the read-guard-write cycle on
// concurrent transitions; values below 1 fall back to 3.
func New(records RecordStore, trail TrailStore, tx StoreTx, events notifier.Publisher, logger *slog.Logger, m *metrics.Metrics, retries int) *Engine {
	if retries < 1 {
		retries = 3
	}
	return &Engine{
		records: records,
		trail:   trail,
		tx:      tx,
		events:  events,
		logger:  logger,
		metrics: m,
		retries: retries,
		now:     time.Now,
	}
}

// Submit creates a draft application owned by the submitting principal,
// together with its initial audit entry. The two writes share one unit of
// work: a record without a trail must never be observable.
func (e *Engine) Submit(ctx context.Context, principal identity.Principal, kind models.Kind, payload json.RawMessage) (*models.Application, error) {
	now := e.now()
	app := &models.Application{
		ID:        id.NewApplicationID(),
		Owner:     principal.ID,
		Kind:      kind,
		Status:    models.StatusDraft,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	entry := &models.AuditEntry{
		ID:            id.NewEntryID(),
		ApplicationID: app.ID,
		Status:        models.StatusDraft,
		Actor:         principal.ID,
		CreatedAt:     now,
	}

	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := e.records.Create(ctx, app); err != nil {
			return err
		}
		return e.trail.Append(ctx, entry)
	})
	if err != nil {
		return nil, e.translateStoreErr(err, "create application")
	}

	e.metrics.ObserveSubmission(kind.String())
	e.logger.InfoContext(ctx, "application created",
		"application_id", app.ID.String(),
		"owner", principal.ID,
		"kind", kind.String(),
	)
	e.publish(app, "", models.StatusDraft, principal.ID, "")
	return app, nil
}

// Get returns the application when the requesting principal is its owner or
// an admin.
func (e *Engine) Get(ctx context.Context, appID id.ApplicationID, principal identity.Principal) (*models.Application, error) {
	app, err := e.records.FindByID(ctx, appID)
	if err != nil {
		return nil, e.translateStoreErr(err, "find application")
	}
	if !principal.Admin && app.Owner != principal.ID {
		return nil, dErrors.New(dErrors.CodeForbidden, "not the application owner")
	}
	return app, nil
}

// List returns the principal's own applications, or any owner's when the
// filter requests a broader scope and the principal is an admin.
func (e *Engine) List(ctx context.Context, principal identity.Principal, filter models.ListFilter) ([]*models.Application, error) {
	if filter.Owner != principal.ID && !principal.Admin {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin capability required to list other owners")
	}
	apps, err := e.records.List(ctx, filter)
	if err != nil {
		return nil, e.translateStoreErr(err, "list applications")
	}
	return apps, nil
}

// Trail returns the application's audit entries oldest-first, subject to the
// same visibility rule as Get.
func (e *Engine) Trail(ctx context.Context, appID id.ApplicationID, principal identity.Principal) ([]*models.AuditEntry, error) {
	if _, err := e.Get(ctx, appID, principal); err != nil {
		return nil, err
	}
	entries, err := e.trail.ListByApplication(ctx, appID)
	if err != nil {
		return nil, e.translateStoreErr(err, "read audit trail")
	}
	return entries, nil
}

func (e *Engine) publish(app *models.Application, from, to models.Status, actor, notes string) {
	e.events.Publish(notifier.TransitionEvent{
		ApplicationID: app.ID.String(),
		Owner:         app.Owner,
		Kind:          app.Kind.String(),
		OldStatus:     from.String(),
		NewStatus:     to.String(),
		Actor:         actor,
		Notes:         notes,
		At:            app.UpdatedAt,
	})
}

// translateStoreErr maps store sentinels onto the caller-facing taxonomy.
// Unknown store failures surface as unavailable rather than being retried
// silently; the caller owns the retry/backoff decision.
func (e *Engine) translateStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent write detected")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+" timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+" failed")
	}
}
