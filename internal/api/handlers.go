package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/todostore/pkg/types"
)

// Per-operation prefixes for 500 details.
const (
	failFetch  = "Failed to fetch todos"
	failSave   = "Failed to save todo"
	failUpdate = "Failed to update todo"
	failDelete = "Failed to delete todo"
	failSync   = "Failed to sync todos"
	failGet    = "Failed to fetch todo"

	detailNotFound   = "Todo not found"
	detailConnFailed = "Database connection failed"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message:   rootMessage,
		Endpoints: rootEndpoints,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	todos, err := s.store.List(r.Context())
	if err != nil {
		s.fail(w, r, "list", failFetch, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "get", failGet, err)
		return
	}
	todo, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get", failGet, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "create", failSave, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, "create", failSave, validationError(err))
		return
	}

	saved, err := s.store.Upsert(r.Context(), req.todo())
	if err != nil {
		s.fail(w, r, "create", failSave, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "update", failUpdate, err)
		return
	}
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, "update", failUpdate, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, "update", failUpdate, validationError(err))
		return
	}

	saved, err := s.store.SetDone(r.Context(), id, *req.Done)
	if err != nil {
		s.fail(w, r, "update", failUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "delete", failDelete, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "delete", failDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Todo deleted successfully"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var reqs []todoRequest
	if err := decodeJSON(w, r, &reqs); err != nil {
		s.fail(w, r, "sync", failSync, err)
		return
	}
	if reqs == nil {
		s.fail(w, r, "sync", failSync, badRequest("request body must be a JSON array of todos"))
		return
	}

	todos := make([]types.Todo, 0, len(reqs))
	for i, req := range reqs {
		if err := s.validate.Struct(req); err != nil {
			s.fail(w, r, "sync", failSync, &types.ItemError{Index: i, Err: validationError(err)})
			return
		}
		todos = append(todos, req.todo())
	}

	n, err := s.store.Sync(r.Context(), todos)
	if err != nil {
		s.fail(w, r, "sync", failSync, err)
		return
	}
	s.metrics.synced(n)
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("Synced %d todos successfully", n)})
}

// fail maps err to a status code and writes the error body.
// Not-found is 404, request problems are 400, connection failures and
// everything else are 500 with the underlying message embedded.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op, prefix string, err error) {
	log := requestLogger(r)

	switch {
	case errors.Is(err, types.ErrNotFound):
		writeDetail(w, http.StatusNotFound, detailNotFound)
	case isClientError(err):
		log.Debug().Err(err).Str("operation", op).Msg("rejected request")
		writeDetail(w, http.StatusBadRequest, err.Error())
	case types.IsConnError(err):
		var ce *types.ConnError
		errors.As(err, &ce)
		s.metrics.storeError(op, "connection")
		log.Error().Err(err).Str("operation", op).Msg("database unreachable")
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", detailConnFailed, ce.Err))
	default:
		s.metrics.storeError(op, "query")
		log.Error().Err(err).Str("operation", op).Msg("store operation failed")
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, err))
	}
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid todo id %q", raw)
	}
	return id, nil
}

// requestLogger returns the request-scoped logger set by withRequestID.
func requestLogger(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
