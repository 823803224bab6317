package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/models"
)

type staticTokens map[string]auth.Principal

func (s staticTokens) Parse(raw string) (auth.Principal, error) {
	p, ok := s[raw]
	if !ok {
		return auth.Principal{}, errors.New("bad token")
	}
	return p, nil
}

type observed struct {
	route  string
	status int
}

type recorder struct{ calls []observed }

func (r *recorder) ObserveRequest(_, route string, status int, _ time.Duration) {
	r.calls = append(r.calls, observed{route: route, status: status})
}

func TestAuthenticateAndRequireAdmin(t *testing.T) {
	tokens := staticTokens{
		"inv": {UserID: 1, Role: models.RoleInvestor},
		"adm": {UserID: 2, Role: models.RoleAdmin},
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, found := auth.FromContext(r.Context())
		require.True(t, found)
		w.Header().Set("X-User", p.Role)
		w.WriteHeader(http.StatusNoContent)
	})
	h := Authenticate(tokens)(RequireAdmin(ok))

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer inv", http.StatusForbidden},
		{"Bearer adm", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.header)
	}
}

func TestLoggingUsesRoutePattern(t *testing.T) {
	obs := &recorder{}
	r := chi.NewRouter()
	r.Use(Logging(zap.NewNop(), obs))
	r.Get("/deposits/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/deposits/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{route: "/deposits/{id}", status: http.StatusTeapot}, obs.calls[0])
	assert.Equal(t, http.StatusNotFound, obs.calls[1].status)
}
