package types

import (
	"strings"
	"time"
)

// Todo is a single item on the list. ID is supplied by the caller and is
// the primary key. CreatedAt and UpdatedAt are assigned by the store and
// never serialized to clients.
type Todo struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Validate checks the caller-controlled fields of a todo.
// Returns ErrInvalidID for a negative ID and ErrInvalidText for empty or
// whitespace-only text.
func (t Todo) Validate() error {
	if t.ID < 0 {
		return ErrInvalidID
	}
	if strings.TrimSpace(t.Text) == "" {
		return ErrInvalidText
	}
	return nil
}

// ValidateAll validates every todo in order and rejects duplicate IDs.
// The returned error wraps the first failure with the offending index.
func ValidateAll(todos []Todo) error {
	seen := make(map[int64]bool, len(todos))
	for i, t := range todos {
		if err := t.Validate(); err != nil {
			return &ItemError{Index: i, Err: err}
		}
		if seen[t.ID] {
			return &ItemError{Index: i, Err: ErrDuplicateID}
		}
		seen[t.ID] = true
	}
	return nil
}
