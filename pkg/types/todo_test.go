package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoValidate(t *testing.T) {
	tests := []struct {
		name    string
		todo    Todo
		wantErr error
	}{
		{name: "valid todo", todo: Todo{ID: 1, Text: "buy milk"}},
		{name: "zero id is allowed", todo: Todo{ID: 0, Text: "first"}},
		{name: "negative id", todo: Todo{ID: -1, Text: "x"}, wantErr: ErrInvalidID},
		{name: "empty text", todo: Todo{ID: 1}, wantErr: ErrInvalidText},
		{name: "whitespace text", todo: Todo{ID: 1, Text: "  \t"}, wantErr: ErrInvalidText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.todo.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateAll(t *testing.T) {
	t.Run("empty batch is valid", func(t *testing.T) {
		assert.NoError(t, ValidateAll(nil))
	})

	t.Run("reports index of first invalid item", func(t *testing.T) {
		err := ValidateAll([]Todo{{ID: 1, Text: "a"}, {ID: 2, Text: ""}})
		require.Error(t, err)
		var ie *ItemError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, 1, ie.Index)
		assert.ErrorIs(t, err, ErrInvalidText)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		err := ValidateAll([]Todo{{ID: 7, Text: "a"}, {ID: 7, Text: "b"}})
		assert.ErrorIs(t, err, ErrDuplicateID)
	})
}

func TestTodoJSONOmitsTimestamps(t *testing.T) {
	todo := Todo{ID: 3, Text: "walk", Done: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	data, err := json.Marshal(todo)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"text":"walk","done":true}`, string(data))
}

func TestConnError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &ConnError{Err: cause}
	assert.True(t, IsConnError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, IsConnError(ErrNotFound))
}
