// Package store implements the relational storage backend for todostore.
// The same statements run against PostgreSQL (lib/pq) and SQLite
// (modernc.org/sqlite); only placeholders and DDL differ per dialect.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mesh-intelligence/todostore/pkg/types"
)

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// Backend implements types.Store on top of database/sql.
// Each operation checks out a dedicated connection for the lifetime of one
// transaction and returns it before the method returns.
type Backend struct {
	mu      sync.RWMutex
	open    bool
	config  types.Config
	dialect dialect
	db      *sql.DB

	// now supplies timestamps; tests replace it for deterministic ordering.
	now func() time.Time
}

// NewBackend creates a backend that is not yet connected; call Open.
func NewBackend() *Backend {
	return &Backend{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Open validates cfg, connects to the database, and creates the todos
// table if it does not exist.
// Returns ErrAlreadyOpen if called twice without Close.
func (b *Backend) Open(ctx context.Context, cfg types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return types.ErrAlreadyOpen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return err
	}

	if d.name == types.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(d.driverName, d.dsn(cfg))
	if err != nil {
		return &types.ConnError{Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return &types.ConnError{Err: err}
	}
	if _, err := db.ExecContext(ctx, d.createDDL); err != nil {
		db.Close()
		return fmt.Errorf("creating todos table: %w", err)
	}

	b.db = db
	b.dialect = d
	b.config = cfg
	b.open = true
	return nil
}

// Close releases the database handle. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}

// Driver returns the name of the configured driver.
func (b *Backend) Driver() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dialect.name
}

// withTx runs fn inside a transaction on a dedicated connection.
// fn's error rolls the transaction back; otherwise it is committed.
// Connection and begin failures are reported as *types.ConnError.
func (b *Backend) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return types.ErrStoreClosed
	}

	conn, err := b.db.Conn(ctx)
	if err != nil {
		return &types.ConnError{Err: err}
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return &types.ConnError{Err: err}
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
