package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/http/respond"
	"github.com/hongminglow/invest-be/internal/ledger"
	"github.com/hongminglow/invest-be/internal/models/dto"
	"github.com/hongminglow/invest-be/internal/report"
)

// AdminHandler serves the administrator surface. Routes must be mounted
// behind authentication and the admin guard.
type AdminHandler struct {
	svc       *ledger.Service
	logger    *zap.Logger
	uploadDir string
}

// NewAdminHandler constructs the handler. Proof screenshots are served from
// uploadDir.
func NewAdminHandler(svc *ledger.Service, logger *zap.Logger, uploadDir string) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger, uploadDir: uploadDir}
}

// Register attaches admin routes.
func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/dashboard", h.handleOverview)
		r.Get("/users", h.handleUsers)
		r.Post("/admins", h.handleCreateAdmin)
		r.Get("/deposits", h.handleListDeposits)
		r.Post("/deposits/{id}/{action}", h.handleDecideDeposit)
		r.Get("/withdrawals", h.handleListWithdrawals)
		r.Post("/withdrawals/{id}/{action}", h.handleDecideWithdrawal)
		r.Get("/settings", h.handleGetSettings)
		r.Put("/settings", h.handleUpdateSettings)
		r.Get("/user-wallets", h.handleUserWallets)
		r.Get("/contacts", h.handleContacts)
		r.Get("/reports/transactions.csv", h.handleTransactionsCSV)
		r.Get("/reports/{type}", h.handleReport)
	})
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploadDir))))
}

func listQuery(r *http.Request) ledger.ListQuery {
	q := r.URL.Query()
	return ledger.ListQuery{
		Status:    q.Get("status"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		User:      q.Get("user"),
	}
}

func (h *AdminHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.svc.AdminOverview(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err, "failed to load overview")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", out)
}

func (h *AdminHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	users, err := h.svc.SearchUsers(r.Context(), p, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.logger, err, "failed to list users")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", users)
}

func (h *AdminHandler) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.CreateAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	created, err := h.svc.CreateAdmin(r.Context(), p, ledger.AccountInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err, "failed to create admin")
		return
	}
	respond.JSON(w, http.StatusCreated, "admin created", created)
}

func (h *AdminHandler) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.ListDeposits(r.Context(), p, listQuery(r))
	if err != nil {
		writeError(w, h.logger, err, "failed to list deposits")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", rows)
}

func (h *AdminHandler) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.ListWithdrawals(r.Context(), p, listQuery(r))
	if err != nil {
		writeError(w, h.logger, err, "failed to list withdrawals")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", rows)
}

func (h *AdminHandler) handleDecideDeposit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	d, err := h.svc.DecideDeposit(r.Context(), p, id, chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, h.logger, err, "failed to update deposit")
		return
	}
	respond.JSON(w, http.StatusOK, "deposit "+string(d.Status), d)
}

func (h *AdminHandler) handleDecideWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	wd, err := h.svc.DecideWithdrawal(r.Context(), p, id, chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, h.logger, err, "failed to update withdrawal")
		return
	}
	respond.JSON(w, http.StatusOK, "withdrawal "+string(wd.Status), wd)
}

func (h *AdminHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.CurrentSettings(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "failed to load settings")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", settings)
}

func (h *AdminHandler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req dto.SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := h.svc.UpdateSettings(r.Context(), p, req.InterestRate)
	if err != nil {
		writeError(w, h.logger, err, "failed to update settings")
		return
	}
	respond.JSON(w, http.StatusOK, "settings updated", settings)
}

func (h *AdminHandler) handleUserWallets(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.svc.UserWallets(r.Context(), p, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.logger, err, "failed to load wallets")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", out)
}

func (h *AdminHandler) handleContacts(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.svc.ListContacts(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, err, "failed to list contacts")
		return
	}
	respond.JSON(w, http.StatusOK, "ok", out)
}

func (h *AdminHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var table report.Table
	name := chi.URLParam(r, "type")
	switch name {
	case "users":
		users, err := h.svc.SearchUsers(r.Context(), p, "")
		if err != nil {
			writeError(w, h.logger, err, "failed to build report")
			return
		}
		table = report.Users(users)
	case "deposits":
		rows, err := h.svc.ListDeposits(r.Context(), p, listQuery(r))
		if err != nil {
			writeError(w, h.logger, err, "failed to build report")
			return
		}
		table = report.Deposits(rows)
	case "withdrawals":
		rows, err := h.svc.ListWithdrawals(r.Context(), p, listQuery(r))
		if err != nil {
			writeError(w, h.logger, err, "failed to build report")
			return
		}
		table = report.Withdrawals(rows)
	default:
		respond.Error(w, http.StatusBadRequest, "report type must be users, deposits or withdrawals")
		return
	}
	h.sendReport(w, table, format, name)
}

func (h *AdminHandler) handleTransactionsCSV(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := listQuery(r)
	deposits, err := h.svc.ListDeposits(r.Context(), p, q)
	if err != nil {
		writeError(w, h.logger, err, "failed to build report")
		return
	}
	withdrawals, err := h.svc.ListWithdrawals(r.Context(), p, q)
	if err != nil {
		writeError(w, h.logger, err, "failed to build report")
		return
	}
	h.sendReport(w, report.Transactions(deposits, withdrawals), report.CSV, "transactions")
}

// sendReport renders into memory first so a failure can still produce a
// JSON error instead of a truncated download.
func (h *AdminHandler) sendReport(w http.ResponseWriter, table report.Table, format report.Format, name string) {
	var buf bytes.Buffer
	if err := report.Write(&buf, table, format); err != nil {
		writeError(w, h.logger, err, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(name, format, time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("report write interrupted", zap.String("report", name), zap.Error(err))
	}
}
