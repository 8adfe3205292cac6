package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fieldline/actionbox"
	"github.com/fieldline/actionbox/internal/sqlutil"
)

// MySQLStore persists the queue snapshot in a MySQL table.
type MySQLStore struct {
	db    *sql.DB
	table string
}

// MySQLOption configures a MySQLStore.
type MySQLOption func(*MySQLStore)

// WithMySQLTable overrides the default table name ("actionbox").
func WithMySQLTable(name string) MySQLOption {
	return func(s *MySQLStore) {
		if name != "" {
			s.table = name
		}
	}
}

// NewMySQLStore creates a Store backed by MySQL.
func NewMySQLStore(db *sql.DB, opts ...MySQLOption) *MySQLStore {
	store := &MySQLStore{
		db:    db,
		table: "actionbox",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    position INT NOT NULL PRIMARY KEY,
    id VARCHAR(36) NOT NULL UNIQUE,
    job_id VARCHAR(255) NOT NULL,
    kind VARCHAR(32) NOT NULL,
    status VARCHAR(16) NOT NULL,
    attempt_count INT NOT NULL DEFAULT 0,
    created_at TIMESTAMP(6) NOT NULL,
    doc JSON NOT NULL
);`, s.tableIdent())
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Load reads the persisted snapshot in queue order.
func (s *MySQLStore) Load(ctx context.Context) ([]actionbox.Action, error) {
	query := fmt.Sprintf("SELECT doc FROM %s ORDER BY position", s.tableIdent())
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) { _ = rows.Close() }(rows)
	return scanActions(rows)
}

// Save replaces the snapshot in one transaction.
func (s *MySQLStore) Save(ctx context.Context, actions []actionbox.Action) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.tableIdent())); err != nil {
		return err
	}
	insert := fmt.Sprintf(
		"INSERT INTO %s (position, id, job_id, kind, status, attempt_count, created_at, doc) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
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

func (s *MySQLStore) tableIdent() string {
	return sqlutil.QuoteIdentifier(s.table, "`")
}
