package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/ledger"
	"github.com/hongminglow/invest-be/internal/storage"
	"github.com/hongminglow/invest-be/internal/workflow"
)

func TestWriteErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&workflow.ValidationError{Field: "amount", Message: "too small"}, http.StatusBadRequest},
		{fmt.Errorf("load: %w", storage.ErrNotFound), http.StatusNotFound},
		{ledger.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: admin required", workflow.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: deposit 3", workflow.ErrAlreadyDecided), http.StatusConflict},
		{storage.ErrAlreadyExists, http.StatusConflict},
		{ledger.ErrBusy, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, zap.NewNop(), tc.err, "failed")
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

func TestWriteErrorNamesInvalidField(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, zap.NewNop(), &workflow.ValidationError{Field: "amount", Message: "amount must be positive"}, "failed")

	var env struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, http.StatusBadRequest, env.Code)
	assert.Equal(t, "amount", env.Field)
	assert.Equal(t, "amount: amount must be positive", env.Message)
}

func TestDecodeJSONBodyLimit(t *testing.T) {
	var dst map[string]string

	big := `{"message":"` + strings.Repeat("x", maxJSONBytes) + `"}`
	rec := httptest.NewRecorder()
	ok := decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(big)), &dst)
	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	ok = decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{"message":"hi"`)), &dst)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	ok = decodeJSON(rec, httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{"message":"hi"}`)), &dst)
	require.True(t, ok)
	assert.Equal(t, "hi", dst["message"])
}
