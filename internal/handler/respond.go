package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aryan0dhankhar/eventcrm/internal/domain"
	"github.com/aryan0dhankhar/eventcrm/internal/security"
	"github.com/aryan0dhankhar/eventcrm/internal/security/auth"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// responder writes JSON bodies and turns service errors into statuses.
type responder struct {
	logger *slog.Logger
	// devErrors adds the wrapped error chain to 5xx responses.
	devErrors bool
}

func (rs responder) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFor(err)
	resp := ErrorResponse{Error: msg}
	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		if rs.devErrors {
			resp.Detail = err.Error()
		}
	}
	rs.write(w, status, resp)
}

// StatusFor maps an error from the service layer to an HTTP status and a client-safe message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, security.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, security.ErrPermissionDenied):
		var denied *security.PermissionDeniedError
		if errors.As(err, &denied) {
			return http.StatusForbidden, denied.Error()
		}
		return http.StatusForbidden, "permission denied"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrRevocationUnavailable):
		return http.StatusServiceUnavailable, "session store unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// decode reads a strict JSON body into dst.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", domain.ErrValidation, r.PathValue("id"))
	}
	return id, nil
}

// query wraps URL query parsing and keeps the first error.
type query struct {
	values map[string][]string
	err    error
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query()}
}

func (q *query) get(key string) string {
	if v := q.values[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (q *query) number(key string) int {
	raw := q.get(key)
	if raw == "" || q.err != nil {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		q.err = fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrValidation, key)
		return 0
	}
	return n
}

func (q *query) ref(key string) *int64 {
	raw := q.get(key)
	if raw == "" || q.err != nil {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		q.err = fmt.Errorf("%w: %s must be a positive id", domain.ErrValidation, key)
		return nil
	}
	return &n
}

func (q *query) flag(key string) bool {
	raw := q.get(key)
	if raw == "" || q.err != nil {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.err = fmt.Errorf("%w: %s must be a boolean", domain.ErrValidation, key)
		return false
	}
	return b
}

func (q *query) page() domain.Page {
	return domain.Page{Limit: q.number("limit"), Offset: q.number("offset")}
}
