package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jacentio/arbor/forum"
)

// Request bodies. Validation bounds mirror the public contract: names
// 3-40 characters, descriptions 5-200, user names 2-25, passwords
// 5-25.

type categoryRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=40"`
	Description string `json:"description" validate:"required,min=5,max=200"`
}

type forumRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=40"`
	Description string `json:"description" validate:"required,min=5,max=200"`
	CategoryID  int64  `json:"categoryId" validate:"required"`
}

type topicRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=40"`
	Description string `json:"description" validate:"required,min=5,max=200"`
	ForumID     int64  `json:"forumId" validate:"required"`
}

type postRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=40"`
	Description string `json:"description" validate:"required,min=5,max=200"`
	TopicID     int64  `json:"topicId" validate:"required"`
}

// updateRequest is the edit body shared by category, forum, topic, and
// post updates: name and description only. Parents are immutable after
// creation, so edit bodies carry no parent id.
type updateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=40"`
	Description string `json:"description" validate:"required,min=5,max=200"`
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5,max=25"`
	Name     string `json:"name" validate:"required,min=2,max=25"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userUpdateRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=25"`
	Rank     string `json:"rank" validate:"max=40"`
	Location string `json:"location" validate:"max=100"`
}

// decodeValid decodes the request body into dst and validates it.
// Malformed bodies and failed rules both come back as a 422 already
// written to w; the caller just returns on !ok.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, dst any) (ok bool) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorJSON(w, http.StatusUnprocessableEntity, "Validation failed, invalid data.", nil)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.errorJSON(w, http.StatusUnprocessableEntity, "Validation failed, invalid data.", validationDetails(err))
		return false
	}
	return true
}

// validationDetails flattens validator output into the error
// envelope's data list.
func validationDetails(err error) []fieldError {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return nil
	}
	details := make([]fieldError, 0, len(invalid))
	for _, fe := range invalid {
		details = append(details, fieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: "Invalid value for " + strings.ToLower(fe.Field()) + ".",
		})
	}
	return details
}

// pathID parses a numeric display id from a chi URL parameter. A
// non-numeric id can never match a record, so it reports ErrNotFound
// semantics via ok=false and the caller responds 404.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// listQuery reads the shared listing parameters. Values are clamped
// later, never rejected, so parse failures just fall back to zero.
func listQuery(r *http.Request) forum.ListQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	return forum.ListQuery{
		Page:     page,
		Limit:    limit,
		Keywords: q.Get("keywords"),
		Sort:     q.Get("sort"),
	}
}
