package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/esgdash/internal/auth"
	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/middleware"
)

const maxJSONBody = 1 << 20

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Fields   []string `json:"fields,omitempty"`
	Details  string   `json:"details,omitempty"`
	Existing any      `json:"existing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// a 500 that still carries the underlying message in details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		conflictErr   *domain.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: validationErr.Error(), Fields: validationErr.Fields})
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: conflictErr.Error(), Fields: []string{conflictErr.Field}, Existing: conflictErr.Existing})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrScopeMismatch):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.RequestIDFromContext(r.Context()),
		}).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Details: err.Error()})
	}
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.ValidationError{Message: "request body is required"}
		}
		return &domain.ValidationError{Message: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Fields: []string{"id"}, Message: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}

// company resolves the tenant of a request from the query string, falling
// back to the session scope.
func company(r *http.Request) (string, error) {
	return auth.ResolveCompany(r.Context(), r.URL.Query().Get("company"))
}

func optionalInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &domain.ValidationError{Fields: []string{name}, Message: fmt.Sprintf("%s must be an integer", name)}
	}
	return &value, nil
}
