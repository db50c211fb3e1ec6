package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/tavolo/reservations/internal/http/response"
	"github.com/tavolo/reservations/internal/service"
	"github.com/tavolo/reservations/pkg/logger"
)

// SweepHandler exposes the auto-close sweep to the external scheduler. The
// trigger key is a deployment secret, not tenant auth.
type SweepHandler struct {
	sweeper    service.SweeperService
	triggerKey string
}

func NewSweepHandler(sweeper service.SweeperService, triggerKey string) *SweepHandler {
	return &SweepHandler{sweeper: sweeper, triggerKey: triggerKey}
}

func (h *SweepHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.triggerKey == "" {
		response.Forbidden(w, "sweep trigger disabled")
		return
	}
	presented := r.Header.Get("X-Sweep-Key")
	if subtle.ConstantTimeCompare([]byte(presented), []byte(h.triggerKey)) != 1 {
		response.Forbidden(w, "invalid trigger key")
		return
	}

	summary, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "sweep failed", "error", err)
		response.InternalError(w, "sweep failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, summary)
}
