// Package snapshot reads and writes todo lists as JSONL files, one todo per
// line, using an atomic temp-file, fsync, rename pattern for writes.
// Readers and writers of the same file coordinate through a sibling
// "<file>.lock" so concurrent push and pull commands never see a torn file.
package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/mesh-intelligence/todostore/pkg/types"
)

// Lock acquisition limits.
const (
	lockTimeout       = 3 * time.Second
	lockRetryInterval = 100 * time.Millisecond
)

// ErrLocked is returned when another process holds the snapshot lock past
// lockTimeout.
var ErrLocked = errors.New("snapshot file is locked by another process")

// LockPath returns the lock file guarding path.
func LockPath(path string) string {
	return path + ".lock"
}

// withLock runs fn while holding the lock for path, shared or exclusive.
func withLock(path string, shared bool, fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	fl := flock.New(LockPath(path))
	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = fl.TryRLockContext(ctx, lockRetryInterval)
	} else {
		locked, err = fl.TryLockContext(ctx, lockRetryInterval)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLocked
		}
		return fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}

// snapshotRecord is one JSONL line. A line without an id is skipped.
type snapshotRecord struct {
	ID   *int64 `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// ReadTodos reads a JSONL file and returns each todo in file order.
// Blank lines, malformed lines, lines that do not decode into a todo, and
// lines without an id are skipped; the skipped count is returned alongside.
func ReadTodos(path string) ([]types.Todo, int, error) {
	var (
		todos   []types.Todo
		skipped int
	)
	err := withLock(path, true, func() error {
		var err error
		todos, skipped, err = readTodos(path)
		return err
	})
	return todos, skipped, err
}

func readTodos(path string) ([]types.Todo, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	todos := []types.Todo{}
	skipped := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			skipped++
			continue
		}
		var rec snapshotRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.ID == nil {
			skipped++
			continue
		}
		todos = append(todos, types.Todo{ID: *rec.ID, Text: rec.Text, Done: rec.Done})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scanning %s: %w", path, err)
	}
	return todos, skipped, nil
}

// WriteTodos atomically replaces path with one JSON object per todo.
// The parent directory must exist.
func WriteTodos(path string, todos []types.Todo) error {
	return withLock(path, false, func() error {
		return writeTodos(path, todos)
	})
}

func writeTodos(path string, todos []types.Todo) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, t := range todos {
		// Encode terminates each record with a newline.
		if err := enc.Encode(t); err != nil {
			return fail(fmt.Errorf("writing todo %d: %w", t.ID, err))
		}
	}
	if err := w.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
