// Package store provides the public API for opening a todostore backend.
// This package exposes the factory function while keeping the SQL
// implementation internal.
package store

import (
	"context"

	"github.com/mesh-intelligence/todostore/internal/store"
	"github.com/mesh-intelligence/todostore/pkg/types"
)

// Open connects to the database described by cfg, creates the todos table
// if needed, and returns a ready Store. The caller must Close it.
//
// Example:
//
//	s, err := store.Open(ctx, types.Config{
//	    Driver: types.DriverSQLite,
//	    Path:   ".todostore-db/todos.db",
//	})
//	defer s.Close()
func Open(ctx context.Context, cfg types.Config) (types.Store, error) {
	b := store.NewBackend()
	if err := b.Open(ctx, cfg); err != nil {
		return nil, err
	}
	return b, nil
}
