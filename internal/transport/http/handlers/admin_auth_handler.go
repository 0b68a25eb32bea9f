package handlers

import (
	"errors"
	"net/http"
	"strings"

	adminauthsvc "github.com/dasilvacsv/jadRifas-sub000/internal/services/adminauth"
	"github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/dto"
	httperrors "github.com/dasilvacsv/jadRifas-sub000/internal/transport/http/errors"
)

type AdminAuthHandler struct {
	auth *adminauthsvc.Service
}

func NewAdminAuthHandler(auth *adminauthsvc.Service) *AdminAuthHandler {
	return &AdminAuthHandler{auth: auth}
}

func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil || !h.auth.IsConfigured() {
		writeInternal(w, "ADMIN_AUTH_UNAVAILABLE", "admin auth is unavailable")
		return
	}

	var req dto.AdminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, adminauthsvc.ErrUnauthorized) {
			writeUnauthorized(w, "UNAUTHORIZED", "invalid credentials")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "login failed")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminLoginResponse{AccessToken: token})
}

func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil || !h.auth.IsConfigured() {
		writeInternal(w, "ADMIN_AUTH_UNAVAILABLE", "admin auth is unavailable")
		return
	}

	token := BearerToken(r)
	if token == "" {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	if err := h.auth.Logout(r.Context(), token); err != nil {
		if errors.Is(err, adminauthsvc.ErrUnauthorized) {
			writeUnauthorized(w, "UNAUTHORIZED", "invalid token")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "logout failed")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
