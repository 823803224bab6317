package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/http/respond"
	"github.com/hongminglow/invest-be/internal/ledger"
	"github.com/hongminglow/invest-be/internal/models/dto"
)

// AuthHandler owns the register and login endpoints.
type AuthHandler struct {
	svc    *ledger.Service
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *ledger.Service, tokens *auth.TokenManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin(false))
	r.Post("/admin/login", h.handleLogin(true))
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := h.svc.Register(r.Context(), ledger.AccountInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    normalizePhone(req),
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err, "failed to create user")
		return
	}
	respond.JSON(w, http.StatusCreated, "registration successful", created)
}

func (h *AuthHandler) handleLogin(adminOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		user, err := h.svc.Login(r.Context(), req.Email, req.Password, adminOnly)
		if err != nil {
			if adminOnly {
				h.logger.Warn("admin login refused", zap.String("email", req.Email))
			}
			writeError(w, h.logger, err, "failed to log in")
			return
		}
		token, err := h.tokens.Generate(user)
		if err != nil {
			writeError(w, h.logger, err, "failed to generate token")
			return
		}
		respond.JSON(w, http.StatusOK, "login successful", dto.LoginResponse{Token: token, User: user})
	}
}

func normalizePhone(req dto.RegisterRequest) string {
	if trimmed := strings.TrimSpace(req.Phone); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(req.PhoneNumber)
}
