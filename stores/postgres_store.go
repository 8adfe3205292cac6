package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fieldline/actionbox"
	"github.com/fieldline/actionbox/internal/sqlutil"
)

// PostgresStore persists the queue snapshot in a PostgreSQL table. Meant for
// gateway deployments where the agent runs next to a database instead of a
// device filesystem.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresTable overrides the default table name ("actionbox").
func WithPostgresTable(name string) PostgresOption {
	return func(s *PostgresStore) {
		if name != "" {
			s.table = name
		}
	}
}

// NewPostgresStore creates a Store backed by PostgreSQL.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	store := &PostgresStore{
		db:    db,
		table: "actionbox",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    position INTEGER PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    job_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    status TEXT NOT NULL,
    attempt_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    doc JSONB NOT NULL
);`, s.tableIdent())
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Load reads the persisted snapshot in queue order.
func (s *PostgresStore) Load(ctx context.Context) ([]actionbox.Action, error) {
	query := fmt.Sprintf("SELECT doc FROM %s ORDER BY position", s.tableIdent())
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) { _ = rows.Close() }(rows)
	return scanActions(rows)
}

// Save replaces the snapshot in one transaction.
func (s *PostgresStore) Save(ctx context.Context, actions []actionbox.Action) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.tableIdent())); err != nil {
		return err
	}
	insert := fmt.Sprintf(
		"INSERT INTO %s (position, id, job_id, kind, status, attempt_count, created_at, doc) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		s.tableIdent(),
	)
	for i, a := range actions {
		doc, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert,
			i, a.ID, a.Payload.JobID(), string(a.Kind), string(a.Status), a.AttemptCount, a.CreatedAt, doc,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) tableIdent() string {
	return sqlutil.QuoteIdentifier(s.table, `"`)
}
