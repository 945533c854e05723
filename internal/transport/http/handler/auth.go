package handler

import (
	"net/http"
	"strings"

	"wallet-gateway/internal/models"
)

// @Summary Log in
// @Description Verifies phone and PIN and issues an opaque session token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.svc.Accounts.Login(r.Context(), req.Phone, req.Pin)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// @Summary Log out
// @Tags auth
// @Accept json
// @Produce json
// @Param token body models.LogoutRequest true "Session token"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req models.LogoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.Accounts.Logout(r.Context(), req.SessionToken); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Logged out successfully"})
}

// @Summary Validate a session token
// @Description Token from "Authorization: Bearer <token>" or X-Session-Token
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/validate [get]
func (h *Handler) validateToken(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Accounts.ValidateToken(r.Context(), sessionToken(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  models.NewUserResponse(user),
	})
}

func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.Header.Get("X-Session-Token")
}
