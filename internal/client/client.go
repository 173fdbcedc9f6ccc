// Package client is a typed HTTP client for the todostore API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/todostore/pkg/types"
)

// DefaultTimeout bounds a single request when the caller supplies no client.
const DefaultTimeout = 30 * time.Second

// Client talks to a running todostore server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Status is the body of GET /.
type Status struct {
	Message   string   `json:"message"`
	Endpoints []string `json:"endpoints"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// New creates a client for the server at baseURL. httpClient may be nil.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL %q must use http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// Health fetches the server status message.
func (c *Client) Health(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.do(ctx, http.MethodGet, "/", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns all todos, newest first.
func (c *Client) List(ctx context.Context) ([]types.Todo, error) {
	todos := []types.Todo{}
	if err := c.do(ctx, http.MethodGet, "/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// Get returns one todo.
func (c *Client) Get(ctx context.Context, id int64) (*types.Todo, error) {
	var t types.Todo
	if err := c.do(ctx, http.MethodGet, todoPath(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert creates the todo or overwrites the one with the same ID.
func (c *Client) Upsert(ctx context.Context, todo types.Todo) (*types.Todo, error) {
	var t types.Todo
	if err := c.do(ctx, http.MethodPost, "/todos", todo, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SetDone updates the completion flag of an existing todo.
func (c *Client) SetDone(ctx context.Context, id int64, done bool) (*types.Todo, error) {
	var t types.Todo
	body := struct {
		Done bool `json:"done"`
	}{Done: done}
	if err := c.do(ctx, http.MethodPut, todoPath(id), body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a todo.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, todoPath(id), nil, nil)
}

// Sync replaces every todo on the server with todos and returns the
// server's confirmation message.
func (c *Client) Sync(ctx context.Context, todos []types.Todo) (string, error) {
	if todos == nil {
		todos = []types.Todo{}
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/todos/sync", todos, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func todoPath(id int64) string {
	return "/todos/" + strconv.FormatInt(id, 10)
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Detail string `json:"detail"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(data, &e) == nil && e.Detail != "" {
			apiErr.Detail = e.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
