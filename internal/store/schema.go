package store

// Schema DDL for the todos table. Both variants are idempotent and run on
// every Open.
const (
	createTodosPostgres = `CREATE TABLE IF NOT EXISTS todos (
    id INTEGER PRIMARY KEY,
    text TEXT NOT NULL,
    done BOOLEAN DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

	createTodosSQLite = `CREATE TABLE IF NOT EXISTS todos (
    id INTEGER PRIMARY KEY,
    text TEXT NOT NULL,
    done BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`
)

// Statements shared by both dialects. Placeholders are rebound per dialect.
const (
	selectAllTodos = `SELECT id, text, done FROM todos ORDER BY created_at DESC, id DESC`

	selectTodo = `SELECT id, text, done, created_at, updated_at FROM todos WHERE id = ?`

	upsertTodo = `INSERT INTO todos (id, text, done, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    text = excluded.text,
    done = excluded.done,
    updated_at = excluded.updated_at
RETURNING id, text, done`

	updateTodoDone = `UPDATE todos SET done = ?, updated_at = ? WHERE id = ? RETURNING id, text, done`

	deleteTodo = `DELETE FROM todos WHERE id = ?`

	deleteAllTodos = `DELETE FROM todos`

	insertTodo = `INSERT INTO todos (id, text, done, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
)
