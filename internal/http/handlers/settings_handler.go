package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tavolo/reservations/internal/clock"
	"github.com/tavolo/reservations/internal/domain"
	mw "github.com/tavolo/reservations/internal/http/middleware"
	"github.com/tavolo/reservations/internal/http/response"
	"github.com/tavolo/reservations/internal/repo/postgres"
	"github.com/tavolo/reservations/pkg/logger"
)

// SettingsHandler exposes the tenant's decision policy to the dashboard.
type SettingsHandler struct {
	tenants postgres.TenantsRepo
}

func NewSettingsHandler(tenants postgres.TenantsRepo) *SettingsHandler {
	return &SettingsHandler{tenants: tenants}
}

type settingsView struct {
	MaxAutoConfirmPeople int    `json:"max_auto_confirm_people"`
	CutoffTime           string `json:"cutoff_time"`
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.GetTenant(r.Context(), mw.TenantID(r.Context()))
	if err != nil {
		logger.ErrorContext(r.Context(), "settings lookup failed", "error", err)
		response.InternalError(w, "Something went wrong")
		return
	}
	if t == nil {
		response.NotFound(w, "Tenant not found")
		return
	}

	response.WriteJSON(w, http.StatusOK, settingsView{
		MaxAutoConfirmPeople: t.MaxAutoConfirmPeople,
		CutoffTime:           t.CutoffTime,
	})
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload settingsView
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	// Same bounds the resolver enforces; a value it would ignore is rejected
	// here instead of silently stored.
	if payload.MaxAutoConfirmPeople < domain.MinPartySize || payload.MaxAutoConfirmPeople > domain.MaxPartySize {
		response.BadRequest(w, fmt.Sprintf("max_auto_confirm_people must be between %d and %d",
			domain.MinPartySize, domain.MaxPartySize))
		return
	}
	cutoff, ok := clock.NormalizeHHMM(payload.CutoffTime)
	if !ok {
		response.BadRequest(w, "cutoff_time must be HH:MM")
		return
	}

	t, err := h.tenants.UpdatePolicy(r.Context(), mw.TenantID(r.Context()), payload.MaxAutoConfirmPeople, cutoff)
	if err != nil {
		logger.ErrorContext(r.Context(), "settings update failed", "error", err)
		response.InternalError(w, "Something went wrong")
		return
	}
	if t == nil {
		response.NotFound(w, "Tenant not found")
		return
	}

	response.WriteJSON(w, http.StatusOK, settingsView{
		MaxAutoConfirmPeople: t.MaxAutoConfirmPeople,
		CutoffTime:           t.CutoffTime,
	})
}
