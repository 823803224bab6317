package respond

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Envelope wraps every API response. Field names the offending input on
// validation failures.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes status with message and an optional data payload.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, Envelope{Code: status, Message: message, Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	write(w, Envelope{Code: status, Message: message})
}

// FieldError reports a rejected input field so clients can highlight it.
func FieldError(w http.ResponseWriter, status int, field, message string) {
	write(w, Envelope{Code: status, Message: message, Field: field})
}

// write marshals before touching the header, so a payload that cannot be
// encoded still yields a well-formed 500 instead of a truncated body.
func write(w http.ResponseWriter, env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		zap.L().Error("encode response envelope",
			zap.Int("status", env.Code),
			zap.Error(err),
		)
		env = Envelope{Code: http.StatusInternalServerError, Message: "internal error"}
		body, _ = json.Marshal(env)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.Code)
	_, _ = w.Write(append(body, '\n'))
}
