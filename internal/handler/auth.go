package handler

import (
	"net/http"

	"github.com/aryan0dhankhar/eventcrm/internal/security/middleware"
	"github.com/aryan0dhankhar/eventcrm/internal/service"
)

// authHandler handles authentication endpoints
type authHandler struct {
	responder
	authService *service.AuthService
}

// login handles POST /api/auth/login
func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, result)
}

// logout handles POST /api/auth/logout. The token is revoked when a revocation list is configured.
func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.TokenFromContext(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// me handles GET /api/auth/me
func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.CurrentUser(r.Context(), middleware.TokenFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, userResponse(user))
}
