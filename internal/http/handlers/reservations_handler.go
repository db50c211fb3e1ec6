package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tavolo/reservations/internal/domain"
	mw "github.com/tavolo/reservations/internal/http/middleware"
	"github.com/tavolo/reservations/internal/http/response"
	"github.com/tavolo/reservations/internal/service"
	"github.com/tavolo/reservations/internal/utils"
	"github.com/tavolo/reservations/pkg/logger"
)

type ReservationsHandler struct {
	reservations service.ReservationService
}

func NewReservationsHandler(reservations service.ReservationService) *ReservationsHandler {
	return &ReservationsHandler{reservations: reservations}
}

// createPayload accepts the field aliases the various channels send; the
// normalization below is the only place that knows about them, the core sees
// one typed request.
type createPayload struct {
	CustomerName string `json:"customer_name"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	PhoneNumber  string `json:"phone_number"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PartySize    int    `json:"party_size"`
	PartySizeAlt int    `json:"partySize"`
	People       int    `json:"people"`
	Pax          int    `json:"pax"`
	Channel      string `json:"channel"`
	Area         string `json:"area"`
}

func (p *createPayload) normalize() *domain.CreateReservationReq {
	name := p.CustomerName
	if name == "" {
		name = p.Name
	}
	phone := p.Phone
	if phone == "" {
		phone = p.PhoneNumber
	}
	size := p.PartySize
	for _, alt := range []int{p.PartySizeAlt, p.People, p.Pax} {
		if size == 0 {
			size = alt
		}
	}
	return &domain.CreateReservationReq{
		CustomerName: utils.NormalizeString(name),
		Phone:        utils.NormalizePhone(phone),
		ServiceDate:  utils.NormalizeString(p.Date),
		ServiceTime:  utils.NormalizeString(p.Time),
		PartySize:    size,
		Channel:      utils.NormalizeString(p.Channel),
		Area:         utils.NormalizeString(p.Area),
	}
}

func (h *ReservationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	res, err := h.reservations.Create(r.Context(), mw.TenantID(r.Context()), payload.normalize())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, res)
}

func (h *ReservationsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	var status *domain.ReservationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := domain.ParseReservationStatus(raw)
		if !ok {
			response.BadRequest(w, "Unknown status filter")
			return
		}
		status = &parsed
	}

	rs, err := h.reservations.List(r.Context(), mw.TenantID(r.Context()), status, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"reservations": rs,
		"count":        len(rs),
	})
}

func (h *ReservationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid reservation id")
		return
	}

	res, err := h.reservations.Get(r.Context(), mw.TenantID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, res)
}

// Transition returns the handler for one owner action; target is fixed per
// route.
func (h *ReservationsHandler) Transition(target domain.ReservationStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			response.BadRequest(w, "Invalid reservation id")
			return
		}

		res, err := h.reservations.Transition(r.Context(), mw.TenantID(r.Context()), id, target)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, res)
	}
}

// writeServiceError maps the domain error taxonomy onto the HTTP surface.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		conflict   *domain.StateConflictError
		closed     *domain.AlreadyClosedError
	)

	switch {
	case errors.As(err, &validation):
		response.WriteError(w, http.StatusUnprocessableEntity, validation.Msg, validation.Code)
	case errors.As(err, &conflict):
		response.WriteConflict(w, "Reservation changed underneath this request", response.CodeStateConflict, string(conflict.Current))
	case errors.As(err, &closed):
		response.WriteConflict(w, "Reservation already closed", response.CodeAlreadyClosed, string(closed.Reservation.Status))
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "Reservation not found")
	default:
		logger.ErrorContext(r.Context(), "request failed", "error", err)
		response.InternalError(w, "Something went wrong")
	}
}
