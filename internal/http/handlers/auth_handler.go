package handlers

import (
	"net/http"
	"time"

	"github.com/tavolo/reservations/internal/http/response"
	"github.com/tavolo/reservations/internal/repo/postgres"
	"github.com/tavolo/reservations/pkg/auth"
	"github.com/tavolo/reservations/pkg/logger"
)

// AuthHandler exchanges a tenant API key for a short-lived dashboard session
// JWT, so browser clients never hold the long-lived key.
type AuthHandler struct {
	tenants   postgres.TenantsRepo
	jwtSecret string
	ttl       time.Duration
}

func NewAuthHandler(tenants postgres.TenantsRepo, jwtSecret string, ttl time.Duration) *AuthHandler {
	return &AuthHandler{tenants: tenants, jwtSecret: jwtSecret, ttl: ttl}
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		response.Unauthorized(w, "missing api key")
		return
	}

	tenantID, err := auth.SplitAPIKey(apiKey)
	if err != nil {
		response.Unauthorized(w, "invalid api key")
		return
	}
	t, err := h.tenants.GetTenant(r.Context(), tenantID)
	if err != nil || t == nil || !auth.VerifyAPIKey(apiKey, t.APIKeyHash) {
		response.Unauthorized(w, "invalid api key")
		return
	}

	token, err := auth.NewSessionToken(tenantID, "owner", h.jwtSecret, h.ttl)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to mint session token", "error", err)
		response.InternalError(w, "Something went wrong")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(h.ttl.Seconds()),
	})
}
