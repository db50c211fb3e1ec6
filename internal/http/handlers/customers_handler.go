package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/tavolo/reservations/internal/http/middleware"
	"github.com/tavolo/reservations/internal/http/response"
	"github.com/tavolo/reservations/internal/repo/postgres"
	"github.com/tavolo/reservations/internal/utils"
	"github.com/tavolo/reservations/pkg/logger"
)

// CustomersHandler serves the per-tenant visit aggregates the completed
// transitions accumulate.
type CustomersHandler struct {
	customers postgres.CustomersRepo
}

func NewCustomersHandler(customers postgres.CustomersRepo) *CustomersHandler {
	return &CustomersHandler{customers: customers}
}

func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	if !utils.IsValidPhone(phone) {
		response.BadRequest(w, "Invalid phone number")
		return
	}

	c, err := h.customers.Get(r.Context(), mw.TenantID(r.Context()), utils.NormalizePhone(phone))
	if err != nil {
		logger.ErrorContext(r.Context(), "customer lookup failed", "error", err)
		response.InternalError(w, "Something went wrong")
		return
	}
	if c == nil {
		response.NotFound(w, "Customer not found")
		return
	}

	response.WriteJSON(w, http.StatusOK, c)
}
