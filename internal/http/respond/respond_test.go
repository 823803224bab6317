package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, "created", map[string]int{"id": 4})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]int `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.Equal(t, 201, env.Code)
	assert.Equal(t, "created", env.Message)
	assert.Equal(t, 4, env.Data["id"])
}

func TestErrorOmitsData(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":404,"message":"not found"}`, rec.Body.String())
}

func TestFieldErrorNamesField(t *testing.T) {
	rec := httptest.NewRecorder()
	FieldError(rec, http.StatusBadRequest, "amount", "amount must be positive")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"code":400,"message":"amount must be positive","field":"amount"}`, rec.Body.String())
}

func TestUnencodableDataBecomes500(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, "ok", map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal error"}`, rec.Body.String())
}
