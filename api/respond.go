package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jacentio/arbor/forum"
)

// envelope is the generic success response shape.
type envelope map[string]any

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// errorJSON writes the error envelope {message, data}.
func (s *Server) errorJSON(w http.ResponseWriter, status int, message string, data any) {
	s.writeJSON(w, status, envelope{"message": message, "data": data})
}

// serviceError maps domain sentinel errors onto HTTP responses.
// entity names the resource so not-found messages read the way clients
// expect ("Could not find category.").
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, entity string, err error) {
	switch {
	case errors.Is(err, forum.ErrNotFound):
		s.errorJSON(w, http.StatusNotFound, "Could not find "+entity+".", nil)
	case errors.Is(err, forum.ErrBadCredentials):
		s.errorJSON(w, http.StatusUnauthorized, "Wrong password", nil)
	case errors.Is(err, forum.ErrForbidden):
		s.errorJSON(w, http.StatusForbidden, "Not authorized.", nil)
	case errors.Is(err, forum.ErrDuplicateName):
		s.errorJSON(w, http.StatusUnprocessableEntity, "Validation failed, invalid data.",
			[]fieldError{{Field: "name", Message: "Name already exists."}})
	case errors.Is(err, forum.ErrDuplicateEmail):
		s.errorJSON(w, http.StatusUnprocessableEntity, "Validation failed, invalid data.",
			[]fieldError{{Field: "email", Message: "Email address already exists!"}})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.errorJSON(w, http.StatusInternalServerError, "Internal server error.", nil)
	}
}

// fieldError is one validation failure in the error envelope's data
// list.
type fieldError struct {
	Field   string `json:"param"`
	Message string `json:"msg"`
}
