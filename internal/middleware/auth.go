package middleware

import (
	"net/http"
	"strings"

	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/http/respond"
)

// TokenParser turns a bearer token into a principal.
type TokenParser interface {
	Parse(raw string) (auth.Principal, error)
}

// Authenticate requires a valid bearer token and stores the principal on the
// request context.
func Authenticate(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				respond.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			p, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin rejects authenticated callers that are not administrators.
// It must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !p.IsAdmin() {
			respond.Error(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
