package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fieldline/actionbox"
	"github.com/fieldline/actionbox/internal/sqlutil"
)

// SQLiteStore persists the queue snapshot in a SQLite table, one row per
// action. Save replaces the whole snapshot inside a transaction, matching
// the single-writer whole-snapshot contract of Store.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteTable overrides the default table name ("actionbox").
func WithSQLiteTable(name string) SQLiteOption {
	return func(s *SQLiteStore) {
		if name != "" {
			s.table = name
		}
	}
}

// NewSQLiteStore creates a Store backed by SQLite.
func NewSQLiteStore(db *sql.DB, opts ...SQLiteOption) *SQLiteStore {
	store := &SQLiteStore{
		db:    db,
		table: "actionbox",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    position INTEGER PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    job_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    status TEXT NOT NULL,
    attempt_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    doc BLOB NOT NULL
);`, s.tableIdent())
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Load reads the persisted snapshot in queue order.
func (s *SQLiteStore) Load(ctx context.Context) ([]actionbox.Action, error) {
	query := fmt.Sprintf("SELECT doc FROM %s ORDER BY position", s.tableIdent())
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) { _ = rows.Close() }(rows)
	return scanActions(rows)
}

// Save replaces the snapshot in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, actions []actionbox.Action) error {
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

func (s *SQLiteStore) tableIdent() string {
	return sqlutil.QuoteIdentifier(s.table, `"`)
}

// scanActions decodes doc rows into actions, shared by the SQL stores.
func scanActions(rows *sql.Rows) ([]actionbox.Action, error) {
	var actions []actionbox.Action
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var a actionbox.Action
		if err := json.Unmarshal(doc, &a); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}
