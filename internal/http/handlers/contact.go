package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/http/respond"
	"github.com/hongminglow/invest-be/internal/ledger"
	"github.com/hongminglow/invest-be/internal/models/dto"
)

// ContactHandler accepts public feedback messages.
type ContactHandler struct {
	svc    *ledger.Service
	logger *zap.Logger
}

func NewContactHandler(svc *ledger.Service, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{svc: svc, logger: logger}
}

func (h *ContactHandler) Register(r chi.Router) {
	r.Post("/contact", h.handleSubmit)
}

func (h *ContactHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req dto.ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.svc.SubmitContact(r.Context(), req.Name, req.Email, req.Message)
	if err != nil {
		writeError(w, h.logger, err, "failed to submit message")
		return
	}
	respond.JSON(w, http.StatusCreated, "thank you for your feedback", c)
}
