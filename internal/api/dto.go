package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/todostore/pkg/types"
)

// maxBodyBytes bounds request bodies; a sync payload carries the whole list.
const maxBodyBytes = 10 << 20

// todoRequest is the body of POST /todos and one element of POST /todos/sync.
// Done is optional and defaults to false.
type todoRequest struct {
	ID   *int64 `json:"id" validate:"required,min=0"`
	Text string `json:"text" validate:"required"`
	Done *bool  `json:"done"`
}

func (r todoRequest) todo() types.Todo {
	t := types.Todo{Text: r.Text}
	if r.ID != nil {
		t.ID = *r.ID
	}
	if r.Done != nil {
		t.Done = *r.Done
	}
	return t
}

// updateRequest is the body of PUT /todos/{id}.
type updateRequest struct {
	Done *bool `json:"done" validate:"required"`
}

// messageResponse carries a human-readable status message.
type messageResponse struct {
	Message string `json:"message"`
}

// rootResponse is returned by GET /.
type rootResponse struct {
	Message   string   `json:"message"`
	Endpoints []string `json:"endpoints"`
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Detail string `json:"detail"`
}

// requestError marks request decoding and validation failures.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("request body exceeds %d bytes", tooLarge.Limit)
		}
		return badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON value")
	}
	return nil
}

// validationError turns validator output into a readable bad-request error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return badRequest("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return badRequest("%s", strings.Join(msgs, "; "))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// isClientError reports whether err stems from the request rather than the
// database.
func isClientError(err error) bool {
	var re *requestError
	var ie *types.ItemError
	return errors.As(err, &re) ||
		errors.As(err, &ie) ||
		errors.Is(err, types.ErrInvalidID) ||
		errors.Is(err, types.ErrInvalidText) ||
		errors.Is(err, types.ErrInvalidData) ||
		errors.Is(err, types.ErrDuplicateID)
}
