package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ipregistry/internal/application/models"
	id "ipregistry/pkg/domain"
	"ipregistry/pkg/platform/sentinel"
	txcontext "ipregistry/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// PostgresStore persists application records in PostgreSQL. Mutations join an
// in-flight transaction when one is carried in context, which is how the
// engine pairs the status update with the audit append atomically.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (id, owner, kind, status, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(app.ID),
		app.Owner,
		string(app.Kind),
		string(app.Status),
		[]byte(app.Payload),
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	query := `
		SELECT id, owner, kind, status, payload, created_at, updated_at
		FROM applications
		WHERE id = $1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(appID))
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Application, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Owner != "" {
		args = append(args, filter.Owner)
		conds = append(conds, "owner = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Kind != nil {
		args = append(args, string(*filter.Kind))
		conds = append(conds, "kind = $"+strconv.Itoa(len(args)))
	}

	query := `
		SELECT id, owner, kind, status, payload, created_at, updated_at
		FROM applications
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return out, nil
}

// CompareAndSetStatus performs the conditional update that serializes
// concurrent transitions. Zero rows affected means the expected status no
// longer holds and the caller must re-read.
func (s *PostgresStore) CompareAndSetStatus(ctx context.Context, appID id.ApplicationID, expected, next models.Status, updatedAt time.Time) error {
	query := `
		UPDATE applications
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		string(next),
		updatedAt,
		uuid.UUID(appID),
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("compare-and-set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("compare-and-set status: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app     models.Application
		rawID   uuid.UUID
		kind    string
		status  string
		payload []byte
	)
	if err := row.Scan(&rawID, &app.Owner, &kind, &status, &payload, &app.CreatedAt, &app.UpdatedAt); err != nil {
		return nil, err
	}
	app.ID = id.ApplicationID(rawID)
	app.Kind = models.Kind(kind)
	app.Status = models.Status(status)
	app.Payload = payload
	return &app, nil
}
