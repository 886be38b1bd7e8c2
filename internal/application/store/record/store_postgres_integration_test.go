//go:build integration

package record_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ipregistry/internal/application/models"
	"ipregistry/internal/application/store/record"
	"ipregistry/internal/platform/postgres"
	id "ipregistry/pkg/domain"
	"ipregistry/pkg/platform/sentinel"
	"ipregistry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *record.PostgresStore
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
	s.store = record.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_entries", "applications")
	s.Require().NoError(err)
}

func newTestApplication(owner string) *models.Application {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Application{
		ID:        id.ApplicationID(uuid.New()),
		Owner:     owner,
		Kind:      models.KindPatent,
		Status:    models.StatusDraft,
		Payload:   json.RawMessage(`{"title":"test filing"}`),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	app := newTestApplication("0xalice")
	s.Require().NoError(s.store.Create(ctx, app))

	got, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(app.ID, got.ID)
	s.Equal(app.Owner, got.Owner)
	s.Equal(models.StatusDraft, got.Status)
	s.JSONEq(string(app.Payload), string(got.Payload))
}

func (s *PostgresStoreSuite) TestCreateDuplicateID() {
	ctx := context.Background()
	app := newTestApplication("0xalice")
	s.Require().NoError(s.store.Create(ctx, app))

	err := s.store.Create(ctx, app)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewApplicationID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()

	alice := newTestApplication("0xalice")
	s.Require().NoError(s.store.Create(ctx, alice))

	bob := newTestApplication("0xbob")
	bob.Kind = models.KindTrademark
	bob.Status = models.StatusPending
	s.Require().NoError(s.store.Create(ctx, bob))

	apps, err := s.store.List(ctx, models.ListFilter{Owner: "0xalice"})
	s.Require().NoError(err)
	s.Require().Len(apps, 1)
	s.Equal(alice.ID, apps[0].ID)

	pending := models.StatusPending
	apps, err = s.store.List(ctx, models.ListFilter{Status: &pending})
	s.Require().NoError(err)
	s.Require().Len(apps, 1)
	s.Equal(bob.ID, apps[0].ID)

	apps, err = s.store.List(ctx, models.ListFilter{})
	s.Require().NoError(err)
	s.Len(apps, 2)
}

func (s *PostgresStoreSuite) TestCompareAndSetStatus() {
	ctx := context.Background()
	app := newTestApplication("0xalice")
	s.Require().NoError(s.store.Create(ctx, app))

	err := s.store.CompareAndSetStatus(ctx, app.ID, models.StatusDraft, models.StatusPending, time.Now().UTC())
	s.Require().NoError(err)

	got, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status)

	// Expected status no longer holds.
	err = s.store.CompareAndSetStatus(ctx, app.ID, models.StatusDraft, models.StatusPending, time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

// TestConcurrentCompareAndSet verifies that racing transitions from the same
// observed status produce exactly one winner.
func (s *PostgresStoreSuite) TestConcurrentCompareAndSet() {
	ctx := context.Background()
	app := newTestApplication("0xalice")
	app.Status = models.StatusPending
	s.Require().NoError(s.store.Create(ctx, app))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CompareAndSetStatus(ctx, app.ID, models.StatusPending, models.StatusInReview, time.Now().UTC())
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one transition should win")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should observe the conflict")

	got, err := s.store.FindByID(ctx, app.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusInReview, got.Status)
}
