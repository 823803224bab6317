package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/http/respond"
	"github.com/hongminglow/invest-be/internal/ledger"
	"github.com/hongminglow/invest-be/internal/models/dto"
)

// AccountHandler serves an investor's own wallet, deposits and withdrawals.
type AccountHandler struct {
	svc            *ledger.Service
	logger         *zap.Logger
	uploadMaxBytes int64
}

// NewAccountHandler constructs the handler. uploadMaxBytes bounds the
// multipart body of a proof upload.
func NewAccountHandler(svc *ledger.Service, logger *zap.Logger, uploadMaxBytes int64) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger, uploadMaxBytes: uploadMaxBytes}
}

// Register attaches routes that require an authenticated caller.
func (h *AccountHandler) Register(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/wallet", h.handleWallet)
	r.Get("/history", h.handleHistory)
	r.Get("/settings/rate", h.handleRate)
	r.Post("/deposits", h.handleSubmitDeposit)
	r.Get("/deposits/{id}", h.handleGetDeposit)
	r.Post("/deposits/{id}/proof", h.handleAttachProof)
	r.Post("/withdrawals", h.handleRequestWithdrawal)
}

func (h *AccountHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Dashboard(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load dashboard")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", out)
}

func (h *AccountHandler) handleWallet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Wallet(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load wallet")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", out)
}

func (h *AccountHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.svc.History(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.logger, err, "failed to load history")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", out)
}

func (h *AccountHandler) handleRate(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.CurrentSettings(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "failed to load settings")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", settings)
}

func (h *AccountHandler) handleSubmitDeposit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.SubmitDeposit(r.Context(), p, req.Amount, req.DurationDays)
	if err != nil {
		writeError(w, h.logger, err, "failed to submit deposit")
		return
	}
	respond.JSON(w, http.StatusCreated, "deposit submitted, awaiting approval", d)
}

func (h *AccountHandler) handleGetDeposit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	d, err := h.svc.GetDeposit(r.Context(), p, id)
	if err != nil {
		writeError(w, h.logger, err, "failed to load deposit")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", d)
}

func (h *AccountHandler) handleAttachProof(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	// Allow some slack over the file limit for the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxBytes+64*1024)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		respond.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "screenshot: no file selected")
		return
	}
	defer file.Close()

	d, err := h.svc.AttachProof(r.Context(), p, id, ledger.Upload{
		Filename:  header.Filename,
		Body:      file,
		ProductID: r.FormValue("product_id"),
		Note:      r.FormValue("note"),
	})
	if err != nil {
		writeError(w, h.logger, err, "failed to attach proof")
		return
	}
	respond.JSON(w, http.StatusOK, "proof of payment uploaded", d)
}

func (h *AccountHandler) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.WithdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	wd, err := h.svc.RequestWithdrawal(r.Context(), p, req.Amount, req.Note, req.AccountInfo)
	if err != nil {
		writeError(w, h.logger, err, "failed to request withdrawal")
		return
	}
	respond.JSON(w, http.StatusCreated, "withdrawal requested, awaiting approval", wd)
}
