package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/jacentio/arbor/auth"
)

type contextKey string

// claimsKey carries the authenticated session claims through the
// request context.
const claimsKey contextKey = "claims"

// requireAuth rejects requests without a valid bearer token and
// stashes the claims in the request context for handlers.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.errorJSON(w, http.StatusUnauthorized, "Not authenticated.", nil)
			return
		}
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			s.errorJSON(w, http.StatusUnauthorized, "Not authenticated.", nil)
			return
		}
		claims, err := s.tokens.Parse(token)
		if err != nil {
			s.errorJSON(w, http.StatusUnauthorized, "Not authenticated.", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

// requester returns the authenticated user's internal id. Only
// reachable behind requireAuth.
func requester(r *http.Request) string {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	if claims == nil {
		return ""
	}
	return claims.UserID
}
