// Package api exposes a types.Store over HTTP with JSON bodies.
//
// Routes:
//
//	GET    /             status message and endpoint list
//	GET    /todos        all todos, newest first
//	POST   /todos        create or overwrite a todo
//	GET    /todos/{id}   one todo
//	PUT    /todos/{id}   set the done flag
//	DELETE /todos/{id}   remove a todo
//	POST   /todos/sync   replace every todo with the request body
//	GET    /metrics      Prometheus metrics, when enabled
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/todostore/pkg/types"
)

// Status message and advertised endpoints for GET /.
const rootMessage = "Todo Persistence API is running"

var rootEndpoints = []string{"/todos", "/todos/sync"}

// Server routes HTTP requests to a Store. Server holds no mutable state of
// its own; every request runs start to finish against the store.
type Server struct {
	store    types.Store
	log      zerolog.Logger
	metrics  *Metrics
	validate *validator.Validate
}

// NewServer creates a Server. metrics may be nil.
func NewServer(store types.Store, log zerolog.Logger, metrics *Metrics) *Server {
	return &Server{
		store:    store,
		log:      log,
		metrics:  metrics,
		validate: newValidator(),
	}
}

// Handler returns the routed, instrumented http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.route("root", s.handleRoot))
	mux.Handle("GET /todos", s.route("list", s.handleList))
	mux.Handle("POST /todos", s.route("create", s.handleCreate))
	mux.Handle("GET /todos/{id}", s.route("get", s.handleGet))
	mux.Handle("PUT /todos/{id}", s.route("update", s.handleUpdate))
	mux.Handle("DELETE /todos/{id}", s.route("delete", s.handleDelete))
	mux.Handle("POST /todos/sync", s.route("sync", s.handleSync))
	if s.metrics.Enabled() {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s.withRequestID(mux)
}

// ListenAndServe serves on addr until ctx is canceled, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
