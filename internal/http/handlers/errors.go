package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/http/respond"
	"github.com/hongminglow/invest-be/internal/ledger"
	"github.com/hongminglow/invest-be/internal/storage"
	"github.com/hongminglow/invest-be/internal/workflow"
)

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var verr *workflow.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.FieldError(w, http.StatusBadRequest, verr.Field, verr.Error())
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, ledger.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, workflow.ErrForbidden):
		respond.Error(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, workflow.ErrAlreadyDecided):
		respond.Error(w, http.StatusConflict, "transaction already decided")
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrBusy):
		respond.Error(w, http.StatusConflict, ledger.ErrBusy.Error())
	default:
		logger.Error(fallback, zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, fallback)
	}
}

// maxJSONBytes caps JSON request bodies; proof uploads go through multipart
// with their own limit.
const maxJSONBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return p, ok
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
