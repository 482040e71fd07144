package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-license-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CodesEnvelope wraps batch issuance responses.
type CodesEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Codes   []string `json:"codes"`
}

// ActivationEnvelope wraps activation responses.
type ActivationEnvelope struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Token    string `json:"token"`
	DeviceID string `json:"deviceId"`
}

// VerifyEnvelope wraps token verification responses. Every failure is ok=false.
type VerifyEnvelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeServiceError maps domain sentinels to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status, msg := serviceError(err)
	writeError(w, status, msg)
}

// serviceError picks the status and public message for err. Store and
// generation failures get a fixed message so infrastructure details stay internal.
func serviceError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid admin credential"
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "activation code invalid or already used"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		slog.Error("request failed", "err", err)
		return http.StatusInternalServerError, "internal error"
	}
}
