package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"litewms/internal/ledger"
	"litewms/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate applies the embedded schema
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Queries is the query surface shared by the pooled connection and an
// open transaction. It implements ledger.Tx.
type Queries struct {
	ext sqlx.ExtContext
}

// Queries returns a query surface outside any transaction, for reads
func (s *Store) Queries() *Queries {
	return &Queries{ext: s.db}
}

// RunInTx runs fn inside one database transaction. Any error rolls
// the whole unit of work back, which is what gives ledger commits and
// reverts their all-or-nothing guarantee.
func (s *Store) RunInTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{ext: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// notFound maps sql.ErrNoRows into the ledger error taxonomy
func notFound(err error, what string, id interface{}) error {
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s %v: %w", what, id, models.ErrNotFound)
	}
	return err
}
