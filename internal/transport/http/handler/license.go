package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-license-api/internal/application/license"
	"github.com/go-license-api/internal/domain"
	"github.com/go-license-api/internal/pkg/validate"
	"github.com/go-license-api/internal/transport/http/middleware"
)

// IssueBatchRequest mirrors the admin form: {"password": "...", "n": 10}.
type IssueBatchRequest struct {
	Password string      `json:"password"`
	N        json.Number `json:"n"`
}

type ActivateRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	DeviceID string `json:"deviceId" validate:"required,max=256"`
}

type verifyQuery struct {
	Token    string `validate:"required"`
	DeviceID string `validate:"required,max=256"`
}

// LicenseHandler handles code issuance, activation and token verification.
type LicenseHandler struct {
	svc license.Service
}

func NewLicenseHandler(svc license.Service) *LicenseHandler { return &LicenseHandler{svc: svc} }

func (h *LicenseHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req IssueBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	count, err := parseCount(req.N)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	codes, err := h.svc.IssueBatch(r.Context(), req.Password, count)
	if err != nil {
		if len(codes) == 0 {
			writeServiceError(w, err)
			return
		}
		// Codes issued before the failure are live; hand them back.
		status, msg := serviceError(err)
		writeJSON(w, status, CodesEnvelope{Success: false, Message: msg, Codes: codes})
		return
	}
	writeJSON(w, http.StatusCreated, CodesEnvelope{
		Success: true,
		Message: fmt.Sprintf("generated %d activation codes", len(codes)),
		Codes:   codes,
	})
}

func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.svc.Activate(r.Context(), req.Code, req.DeviceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivationEnvelope{
		Success:  true,
		Message:  "activated",
		Token:    res.Token,
		DeviceID: res.DeviceID,
	})
}

func (h *LicenseHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := verifyQuery{
		Token:    r.URL.Query().Get("token"),
		DeviceID: r.URL.Query().Get("deviceId"),
	}
	if err := validate.Struct(q); err != nil {
		writeJSON(w, http.StatusBadRequest, VerifyEnvelope{OK: false, Message: "token and deviceId are required"})
		return
	}
	if !h.svc.Verify(q.Token, q.DeviceID) {
		writeJSON(w, http.StatusOK, VerifyEnvelope{OK: false, Message: "token invalid or expired"})
		return
	}
	writeJSON(w, http.StatusOK, VerifyEnvelope{OK: true, Message: "token valid"})
}

func (h *LicenseHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing admin credential")
		return
	}
	rec, err := h.svc.Lookup(r.Context(), cred, chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "activation code not found")
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// parseCount accepts any JSON number holding a whole value, so 5, 5.0 and
// 1e2 all parse; a missing count means 1. Range checks are left to the
// service so the credential is checked first.
func parseCount(n json.Number) (int, error) {
	if strings.TrimSpace(n.String()) == "" {
		return 1, nil
	}
	v, err := n.Float64()
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, errors.New("n must be a whole number")
	}
	if math.IsNaN(v) || v != math.Trunc(v) {
		return 0, errors.New("n must be a whole number")
	}
	switch {
	case v >= math.MaxInt:
		return math.MaxInt, nil
	case v <= math.MinInt:
		return 0, nil
	}
	return int(v), nil
}
