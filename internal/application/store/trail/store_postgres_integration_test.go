//go:build integration

package trail_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ipregistry/internal/application/models"
	"ipregistry/internal/application/store/record"
	"ipregistry/internal/application/store/trail"
	"ipregistry/internal/platform/postgres"
	id "ipregistry/pkg/domain"
	"ipregistry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	records  *record.PostgresStore
	store    *trail.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.postgres.DB))
	s.records = record.NewPostgres(s.postgres.DB)
	s.store = trail.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_entries", "applications")
	s.Require().NoError(err)
}

// createApplication satisfies the foreign key audit entries hang off.
func (s *PostgresStoreSuite) createApplication() id.ApplicationID {
	now := time.Now().UTC().Truncate(time.Microsecond)
	app := &models.Application{
		ID:        id.NewApplicationID(),
		Owner:     "0xalice",
		Kind:      models.KindPatent,
		Status:    models.StatusDraft,
		Payload:   json.RawMessage(`{}`),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.records.Create(context.Background(), app))
	return app.ID
}

func (s *PostgresStoreSuite) TestAppendAssignsIncreasingSeq() {
	ctx := context.Background()
	appID := s.createApplication()

	var lastSeq int64
	for _, status := range []models.Status{models.StatusDraft, models.StatusPending, models.StatusInReview} {
		entry := &models.AuditEntry{
			ID:            id.NewEntryID(),
			ApplicationID: appID,
			Status:        status,
			Actor:         "0xalice",
			CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
		}
		s.Require().NoError(s.store.Append(ctx, entry))
		s.Greater(entry.Seq, lastSeq, "seq must increase on every append")
		lastSeq = entry.Seq
	}
}

func (s *PostgresStoreSuite) TestListByApplicationOrder() {
	ctx := context.Background()
	appID := s.createApplication()
	other := s.createApplication()

	statuses := []models.Status{models.StatusDraft, models.StatusPending, models.StatusInReview, models.StatusApproved}
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, status := range statuses {
		entry := &models.AuditEntry{
			ID:            id.NewEntryID(),
			ApplicationID: appID,
			Status:        status,
			Actor:         "0xadmin",
			Notes:         "step",
			CreatedAt:     base.Add(time.Duration(i) * time.Millisecond),
		}
		s.Require().NoError(s.store.Append(ctx, entry))
	}
	// An entry for another application must not leak into the listing.
	s.Require().NoError(s.store.Append(ctx, &models.AuditEntry{
		ID:            id.NewEntryID(),
		ApplicationID: other,
		Status:        models.StatusDraft,
		Actor:         "0xbob",
		CreatedAt:     base,
	}))

	entries, err := s.store.ListByApplication(ctx, appID)
	s.Require().NoError(err)
	s.Require().Len(entries, len(statuses))
	for i, entry := range entries {
		s.Equal(statuses[i], entry.Status)
		s.Equal(appID, entry.ApplicationID)
	}
}

func (s *PostgresStoreSuite) TestTieBreakOnEqualTimestamps() {
	ctx := context.Background()
	appID := s.createApplication()

	at := time.Now().UTC().Truncate(time.Microsecond)
	statuses := []models.Status{models.StatusDraft, models.StatusPending, models.StatusInReview}
	for _, status := range statuses {
		s.Require().NoError(s.store.Append(ctx, &models.AuditEntry{
			ID:            id.NewEntryID(),
			ApplicationID: appID,
			Status:        status,
			Actor:         "0xalice",
			CreatedAt:     at,
		}))
	}

	entries, err := s.store.ListByApplication(ctx, appID)
	s.Require().NoError(err)
	s.Require().Len(entries, len(statuses))
	// Identical timestamps fall back to insertion order via seq.
	for i, entry := range entries {
		s.Equal(statuses[i], entry.Status)
	}
}

func (s *PostgresStoreSuite) TestListEmptyTrail() {
	entries, err := s.store.ListByApplication(context.Background(), s.createApplication())
	s.Require().NoError(err)
	s.Empty(entries)
}
