package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rasoiyaa/backend-store/internal/common"
	"github.com/rasoiyaa/backend-store/internal/obs"
)

// Handler exposes the OTP login flow.
type Handler struct {
	Svc *Service
}

// SendOTP handles POST /auth/send-otp.
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	if err := h.Svc.RequestOTP(r.Context(), payload.Email); err != nil {
		obs.CountOTPRequest("rejected")
		writeServiceError(w, err)
		return
	}
	obs.CountOTPRequest("ok")
	common.JSONData(w, http.StatusAccepted, map[string]string{
		"message": "code sent if the address is valid",
	})
}

// VerifyOTP handles POST /auth/verify-otp and returns a session token.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	session, err := h.Svc.VerifyOTP(r.Context(), payload.Email, payload.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, session)
}

// Logout handles POST /auth/logout by denylisting the presented token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(r.Context(), extractToken(r)); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the authenticated session's identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	contact, ok := common.Contact(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"contact": contact,
		"admin":   common.IsAdmin(r.Context()),
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.WriteError(w, appErr)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "authentication failed", nil)
}
