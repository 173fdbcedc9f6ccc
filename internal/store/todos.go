package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/todostore/pkg/types"
)

// List returns all todos ordered by created_at DESC. Rows created in the same
// instant are ordered by id DESC.
func (b *Backend) List(ctx context.Context) ([]types.Todo, error) {
	todos := []types.Todo{}
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, selectAllTodos)
		if err != nil {
			return fmt.Errorf("querying todos: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var t types.Todo
			if err := rows.Scan(&t.ID, &t.Text, &t.Done); err != nil {
				return fmt.Errorf("scanning todo: %w", err)
			}
			todos = append(todos, t)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating todos: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return todos, nil
}

// Get retrieves a todo by ID, timestamps included.
func (b *Backend) Get(ctx context.Context, id int64) (*types.Todo, error) {
	var t types.Todo
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, b.dialect.rebind(selectTodo), id)
		if err := row.Scan(&t.ID, &t.Text, &t.Done, &t.CreatedAt, &t.UpdatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("getting todo %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert inserts todo or, on an id conflict, overwrites text, done and
// updated_at of the existing row. created_at is kept from the first insert.
func (b *Backend) Upsert(ctx context.Context, todo types.Todo) (*types.Todo, error) {
	if err := todo.Validate(); err != nil {
		return nil, err
	}

	now := b.now()
	var saved types.Todo
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, b.dialect.rebind(upsertTodo),
			todo.ID, todo.Text, todo.Done, now, now,
		)
		if err := row.Scan(&saved.ID, &saved.Text, &saved.Done); err != nil {
			return fmt.Errorf("saving todo %d: %w", todo.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// SetDone updates done and updated_at on the row matching id.
func (b *Backend) SetDone(ctx context.Context, id int64, done bool) (*types.Todo, error) {
	var saved types.Todo
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, b.dialect.rebind(updateTodoDone), done, b.now(), id)
		if err := row.Scan(&saved.ID, &saved.Text, &saved.Done); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("updating todo %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Delete removes the row matching id.
func (b *Backend) Delete(ctx context.Context, id int64) error {
	return b.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, b.dialect.rebind(deleteTodo), id)
		if err != nil {
			return fmt.Errorf("deleting todo %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("counting deleted rows: %w", err)
		}
		if n == 0 {
			return types.ErrNotFound
		}
		return nil
	})
}

// Sync deletes every row and inserts todos in order within one transaction.
// A failing insert rolls back the delete, so the previous contents survive.
// All rows of one sync share the same created_at.
func (b *Backend) Sync(ctx context.Context, todos []types.Todo) (int, error) {
	if err := types.ValidateAll(todos); err != nil {
		return 0, err
	}

	now := b.now()
	err := b.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteAllTodos); err != nil {
			return fmt.Errorf("clearing todos: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, b.dialect.rebind(insertTodo))
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i, t := range todos {
			if _, err := stmt.ExecContext(ctx, t.ID, t.Text, t.Done, now, now); err != nil {
				return fmt.Errorf("inserting todo %d (item %d): %w", t.ID, i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(todos), nil
}
