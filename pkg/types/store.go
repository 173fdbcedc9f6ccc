package types

import (
	"context"
	"errors"
	"fmt"
)

// Store persists todos in a single relational table.
// Every method is one atomic unit of work: it acquires its own connection,
// runs inside a transaction, and commits or rolls back before returning.
type Store interface {
	// List returns every todo ordered by creation time, newest first.
	// An empty table yields an empty, non-nil slice.
	List(ctx context.Context) ([]Todo, error)

	// Get returns the todo with the given ID, timestamps included.
	// Returns ErrNotFound if no row matches.
	Get(ctx context.Context, id int64) (*Todo, error)

	// Upsert inserts the todo, or overwrites text and done on the existing
	// row with the same ID. Returns the stored todo.
	Upsert(ctx context.Context, todo Todo) (*Todo, error)

	// SetDone updates the completion flag of an existing todo.
	// Returns ErrNotFound if no row matches; the table is left unchanged.
	SetDone(ctx context.Context, id int64, done bool) (*Todo, error)

	// Delete removes the todo with the given ID.
	// Returns ErrNotFound if no row matches.
	Delete(ctx context.Context, id int64) error

	// Sync replaces the whole table with todos, in order, in a single
	// transaction. Any failure leaves the previous contents intact.
	// Returns the number of todos written.
	Sync(ctx context.Context, todos []Todo) (int, error)

	// Close releases the database handle. Idempotent.
	Close() error
}

// Store operation errors.
var (
	ErrNotFound    = errors.New("todo not found")
	ErrInvalidID   = errors.New("invalid todo ID")
	ErrInvalidText = errors.New("text must not be empty")
	ErrInvalidData = errors.New("invalid todo data")
	ErrDuplicateID = errors.New("duplicate todo ID")
)

// Store lifecycle errors.
var (
	ErrStoreClosed = errors.New("store is closed")
	ErrAlreadyOpen = errors.New("store is already open")
)

// ConnError reports a failure to reach the database, as opposed to a
// failure of the statement itself.
type ConnError struct {
	Err error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("database connection failed: %v", e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// IsConnError reports whether err wraps a *ConnError.
func IsConnError(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce)
}

// ItemError ties a validation failure to a position in a batch.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
