package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todostore/internal/store"
	"github.com/mesh-intelligence/todostore/pkg/types"
)

// setupServer returns an httptest server backed by a fresh sqlite store.
func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	b := store.NewBackend()
	cfg := types.Config{
		Driver: types.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "todos.db"),
	}
	require.NoError(t, b.Open(context.Background(), cfg))
	t.Cleanup(func() { b.Close() })

	m := NewMetrics(true, "todostore")
	srv := httptest.NewServer(NewServer(b, zerolog.Nop(), m).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeTodos(t *testing.T, data []byte) []types.Todo {
	t.Helper()
	var todos []types.Todo
	require.NoError(t, json.Unmarshal(data, &todos))
	return todos
}

func TestRoot(t *testing.T) {
	srv := setupServer(t)
	status, body := do(t, http.MethodGet, srv.URL+"/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Todo Persistence API is running","endpoints":["/todos","/todos/sync"]}`, string(body))
}

func TestListEmpty(t *testing.T) {
	srv := setupServer(t)
	status, body := do(t, http.MethodGet, srv.URL+"/todos", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "done defaults to false",
			body:       `{"id":1,"text":"buy milk"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"id":1,"text":"buy milk","done":false}`,
		},
		{
			name:       "explicit done",
			body:       `{"id":2,"text":"walk","done":true}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"id":2,"text":"walk","done":true}`,
		},
		{
			name:       "unknown fields are ignored",
			body:       `{"id":3,"text":"x","priority":"high"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"id":3,"text":"x","done":false}`,
		},
		{
			name:       "missing id",
			body:       `{"text":"no id"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"detail":"id is required"}`,
		},
		{
			name:       "missing text",
			body:       `{"id":4}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"detail":"text is required"}`,
		},
		{
			name:       "negative id",
			body:       `{"id":-4,"text":"neg"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"detail":"id must be at least 0"}`,
		},
		{
			name:       "whitespace text",
			body:       `{"id":5,"text":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"detail":"text must not be empty"}`,
		},
		{
			name:       "wrong type",
			body:       `{"id":"seven","text":"x"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"detail":"request body is empty"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupServer(t)
			status, body := do(t, http.MethodPost, srv.URL+"/todos", tt.body)
			assert.Equal(t, tt.wantStatus, status, string(body))
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestCreateThenListIncludesOnce(t *testing.T) {
	srv := setupServer(t)
	status, _ := do(t, http.MethodPost, srv.URL+"/todos", `{"id":7,"text":"once"}`)
	require.Equal(t, http.StatusOK, status)

	_, body := do(t, http.MethodGet, srv.URL+"/todos", "")
	assert.Equal(t, []types.Todo{{ID: 7, Text: "once"}}, decodeTodos(t, body))
}

func TestCreateExistingIDOverwrites(t *testing.T) {
	srv := setupServer(t)
	do(t, http.MethodPost, srv.URL+"/todos", `{"id":1,"text":"first"}`)
	status, body := do(t, http.MethodPost, srv.URL+"/todos", `{"id":1,"text":"second","done":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":1,"text":"second","done":true}`, string(body))

	_, body = do(t, http.MethodGet, srv.URL+"/todos", "")
	assert.Equal(t, []types.Todo{{ID: 1, Text: "second", Done: true}}, decodeTodos(t, body))
}

func TestGetOne(t *testing.T) {
	srv := setupServer(t)
	do(t, http.MethodPost, srv.URL+"/todos", `{"id":9,"text":"nine"}`)

	status, body := do(t, http.MethodGet, srv.URL+"/todos/9", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":9,"text":"nine","done":false}`, string(body))

	status, body = do(t, http.MethodGet, srv.URL+"/todos/10", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"detail":"Todo not found"}`, string(body))
}

func TestUpdate(t *testing.T) {
	t.Run("sets done on existing todo", func(t *testing.T) {
		srv := setupServer(t)
		do(t, http.MethodPost, srv.URL+"/todos", `{"id":1,"text":"task"}`)

		status, body := do(t, http.MethodPut, srv.URL+"/todos/1", `{"done":true}`)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"id":1,"text":"task","done":true}`, string(body))
	})

	t.Run("missing id returns 404 and leaves table unchanged", func(t *testing.T) {
		srv := setupServer(t)
		do(t, http.MethodPost, srv.URL+"/todos", `{"id":1,"text":"task"}`)

		status, body := do(t, http.MethodPut, srv.URL+"/todos/2", `{"done":true}`)
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, `{"detail":"Todo not found"}`, string(body))

		_, body = do(t, http.MethodGet, srv.URL+"/todos", "")
		assert.Equal(t, []types.Todo{{ID: 1, Text: "task"}}, decodeTodos(t, body))
	})

	t.Run("done is required", func(t *testing.T) {
		srv := setupServer(t)
		do(t, http.MethodPost, srv.URL+"/todos", `{"id":1,"text":"task"}`)
		status, body := do(t, http.MethodPut, srv.URL+"/todos/1", `{}`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, `{"detail":"done is required"}`, string(body))
	})

	t.Run("non-numeric id", func(t *testing.T) {
		srv := setupServer(t)
		status, _ := do(t, http.MethodPut, srv.URL+"/todos/abc", `{"done":true}`)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestDelete(t *testing.T) {
	srv := setupServer(t)
	do(t, http.MethodPost, srv.URL+"/todos", `{"id":1,"text":"a"}`)
	do(t, http.MethodPost, srv.URL+"/todos", `{"id":2,"text":"b"}`)

	status, body := do(t, http.MethodDelete, srv.URL+"/todos/1", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Todo deleted successfully"}`, string(body))

	_, body = do(t, http.MethodGet, srv.URL+"/todos", "")
	assert.Equal(t, []types.Todo{{ID: 2, Text: "b"}}, decodeTodos(t, body))

	status, body = do(t, http.MethodDelete, srv.URL+"/todos/1", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"detail":"Todo not found"}`, string(body))
}

func TestSync(t *testing.T) {
	t.Run("replaces table contents", func(t *testing.T) {
		srv := setupServer(t)
		do(t, http.MethodPost, srv.URL+"/todos", `{"id":99,"text":"stale"}`)

		status, body := do(t, http.MethodPost, srv.URL+"/todos/sync",
			`[{"id":1,"text":"a"},{"id":2,"text":"b","done":true}]`)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"message":"Synced 2 todos successfully"}`, string(body))

		_, body = do(t, http.MethodGet, srv.URL+"/todos", "")
		assert.ElementsMatch(t, []types.Todo{
			{ID: 1, Text: "a"},
			{ID: 2, Text: "b", Done: true},
		}, decodeTodos(t, body))
	})

	t.Run("empty array clears the table", func(t *testing.T) {
		srv := setupServer(t)
		do(t, http.MethodPost, srv.URL+"/todos", `{"id":1,"text":"a"}`)

		status, body := do(t, http.MethodPost, srv.URL+"/todos/sync", `[]`)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"message":"Synced 0 todos successfully"}`, string(body))

		_, body = do(t, http.MethodGet, srv.URL+"/todos", "")
		assert.JSONEq(t, `[]`, string(body))
	})

	t.Run("malformed item aborts the whole sync", func(t *testing.T) {
		srv := setupServer(t)
		do(t, http.MethodPost, srv.URL+"/todos", `{"id":1,"text":"keep"}`)

		status, body := do(t, http.MethodPost, srv.URL+"/todos/sync", `[{"id":2,"text":"ok"},{"id":3}]`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, `{"detail":"item 1: text is required"}`, string(body))

		_, body = do(t, http.MethodGet, srv.URL+"/todos", "")
		assert.Equal(t, []types.Todo{{ID: 1, Text: "keep"}}, decodeTodos(t, body))
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		srv := setupServer(t)
		status, body := do(t, http.MethodPost, srv.URL+"/todos/sync", `[{"id":1,"text":"a"},{"id":1,"text":"b"}]`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, string(body), "duplicate todo ID")
	})

	t.Run("null body is rejected and leaves the table intact", func(t *testing.T) {
		srv := setupServer(t)
		do(t, http.MethodPost, srv.URL+"/todos", `{"id":1,"text":"keep"}`)

		status, body := do(t, http.MethodPost, srv.URL+"/todos/sync", `null`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.JSONEq(t, `{"detail":"request body must be a JSON array of todos"}`, string(body))

		_, body = do(t, http.MethodGet, srv.URL+"/todos", "")
		assert.Equal(t, []types.Todo{{ID: 1, Text: "keep"}}, decodeTodos(t, body))
	})

	t.Run("object instead of array", func(t *testing.T) {
		srv := setupServer(t)
		status, _ := do(t, http.MethodPost, srv.URL+"/todos/sync", `{"id":1,"text":"a"}`)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestMethodNotAllowed(t *testing.T) {
	srv := setupServer(t)
	status, _ := do(t, http.MethodPatch, srv.URL+"/todos/1", `{"done":true}`)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestRequestID(t *testing.T) {
	srv := setupServer(t)

	resp, err := http.Get(srv.URL + "/todos")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/todos", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupServer(t)
	do(t, http.MethodPost, srv.URL+"/todos/sync", `[{"id":1,"text":"a"},{"id":2,"text":"b"}]`)
	do(t, http.MethodGet, srv.URL+"/todos", "")

	status, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, status)
	text := string(body)
	assert.Contains(t, text, `todostore_http_requests_total{method="GET",route="list",status="200"} 1`)
	assert.Contains(t, text, `todostore_todos_synced_total 2`)
}

func TestMetricsDisabled(t *testing.T) {
	b := store.NewBackend()
	require.NoError(t, b.Open(context.Background(), types.Config{
		Driver: types.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "todos.db"),
	}))
	defer b.Close()

	srv := httptest.NewServer(NewServer(b, zerolog.Nop(), nil).Handler())
	defer srv.Close()

	status, _ := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, http.MethodGet, srv.URL+"/todos", "")
	assert.Equal(t, http.StatusOK, status)
}

// failingStore returns err from every operation.
type failingStore struct {
	err error
}

func (f failingStore) List(context.Context) ([]types.Todo, error) { return nil, f.err }

func (f failingStore) Get(context.Context, int64) (*types.Todo, error) { return nil, f.err }

func (f failingStore) Upsert(context.Context, types.Todo) (*types.Todo, error) { return nil, f.err }

func (f failingStore) SetDone(context.Context, int64, bool) (*types.Todo, error) { return nil, f.err }

func (f failingStore) Delete(context.Context, int64) error { return f.err }

func (f failingStore) Sync(context.Context, []types.Todo) (int, error) { return 0, f.err }

func (f failingStore) Close() error { return nil }

func TestStoreFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		method     string
		path       string
		body       string
		wantDetail string
	}{
		{
			name:       "list query failure",
			err:        errors.New("relation \"todos\" does not exist"),
			method:     http.MethodGet,
			path:       "/todos",
			wantDetail: `Failed to fetch todos: relation "todos" does not exist`,
		},
		{
			name:       "create query failure",
			err:        errors.New("disk full"),
			method:     http.MethodPost,
			path:       "/todos",
			body:       `{"id":1,"text":"a"}`,
			wantDetail: "Failed to save todo: disk full",
		},
		{
			name:       "update query failure",
			err:        errors.New("deadlock"),
			method:     http.MethodPut,
			path:       "/todos/1",
			body:       `{"done":true}`,
			wantDetail: "Failed to update todo: deadlock",
		},
		{
			name:       "delete query failure",
			err:        errors.New("locked"),
			method:     http.MethodDelete,
			path:       "/todos/1",
			wantDetail: "Failed to delete todo: locked",
		},
		{
			name:       "sync query failure",
			err:        errors.New("constraint"),
			method:     http.MethodPost,
			path:       "/todos/sync",
			body:       `[{"id":1,"text":"a"}]`,
			wantDetail: "Failed to sync todos: constraint",
		},
		{
			name:       "connection failure",
			err:        &types.ConnError{Err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")},
			method:     http.MethodGet,
			path:       "/todos",
			wantDetail: "Database connection failed: dial tcp 127.0.0.1:5432: connect: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics(true, "todostore")
			srv := httptest.NewServer(NewServer(failingStore{err: tt.err}, zerolog.Nop(), m).Handler())
			defer srv.Close()

			status, body := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, http.StatusInternalServerError, status)
			var got errorResponse
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.wantDetail, got.Detail)
		})
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	b := store.NewBackend()
	require.NoError(t, b.Open(context.Background(), types.Config{
		Driver: types.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "todos.db"),
	}))
	defer b.Close()

	var logs bytes.Buffer
	s := NewServer(b, zerolog.New(&logs), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln, time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Contains(t, logs.String(), "shutting down")
}
