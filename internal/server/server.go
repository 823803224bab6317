package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/config"
	"github.com/hongminglow/invest-be/internal/http/handlers"
	"github.com/hongminglow/invest-be/internal/ledger"
	"github.com/hongminglow/invest-be/internal/metrics"
	"github.com/hongminglow/invest-be/internal/middleware"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Service *ledger.Service
	Tokens  *auth.TokenManager
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	// DB is pinged by /health when set.
	DB handlers.Pinger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, d Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewRouter(cfg, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer}
}

// NewRouter builds the full route tree.
func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(d.Logger, d.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !allowsAll(cfg.CORSOrigins),
		MaxAge:           300,
	}))

	handlers.NewHealthHandler(time.Now(), d.DB).Register(r)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	handlers.NewAuthHandler(d.Service, d.Tokens, d.Logger).Register(r)
	handlers.NewContactHandler(d.Service, d.Logger).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(d.Tokens))
		handlers.NewAccountHandler(d.Service, d.Logger, cfg.UploadMaxBytes).Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			handlers.NewAdminHandler(d.Service, d.Logger, cfg.UploadDir).Register(r)
		})
	})
	return r
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
