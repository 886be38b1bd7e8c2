package trail

import (
	"context"
	"database/sql"
	"fmt"

	"ipregistry/internal/application/models"
	id "ipregistry/pkg/domain"
	txcontext "ipregistry/pkg/platform/tx"

	"github.com/google/uuid"
)

// PostgresStore persists audit entries in PostgreSQL. Append joins an
// in-flight transaction when one is carried in context. There is no update
// or delete path on this table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) rowQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (id, application_id, status, actor, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`
	row := s.querier(ctx).QueryRowContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.ApplicationID),
		string(entry.Status),
		entry.Actor,
		entry.Notes,
		entry.CreatedAt,
	)
	if err := row.Scan(&entry.Seq); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, application_id, status, actor, notes, created_at, seq
		FROM audit_entries
		WHERE application_id = $1
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditEntry
	for rows.Next() {
		var (
			entry    models.AuditEntry
			entryID  uuid.UUID
			recordID uuid.UUID
			status   string
		)
		if err := rows.Scan(&entryID, &recordID, &status, &entry.Actor, &entry.Notes, &entry.CreatedAt, &entry.Seq); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ID = id.EntryID(entryID)
		entry.ApplicationID = id.ApplicationID(recordID)
		entry.Status = models.Status(status)
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return out, nil
}
