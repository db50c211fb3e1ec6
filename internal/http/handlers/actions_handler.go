package handlers

import (
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tavolo/reservations/internal/domain"
	"github.com/tavolo/reservations/internal/service"
	"github.com/tavolo/reservations/pkg/logger"
)

// ActionsHandler serves the no-auth click links from owner notifications. It
// renders small human-readable pages, not JSON; the audience is a restaurant
// owner tapping a link in a mail or chat message.
type ActionsHandler struct {
	reservations service.ReservationService
}

func NewActionsHandler(reservations service.ReservationService) *ActionsHandler {
	return &ActionsHandler{reservations: reservations}
}

func (h *ActionsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, domain.TokenActionConfirm)
}

func (h *ActionsHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, domain.TokenActionDecline)
}

func (h *ActionsHandler) act(w http.ResponseWriter, r *http.Request, action domain.TokenAction) {
	token := chi.URLParam(r, "token")

	res, err := h.reservations.ConsumeActionLink(r.Context(), token, action)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	verb := "confirmed"
	if action == domain.TokenActionDecline {
		verb = "declined"
	}
	renderPage(w, http.StatusOK, "Done",
		fmt.Sprintf("Reservation for %s (%d people, %s at %s) has been %s.",
			html.EscapeString(res.CustomerName), res.PartySize, res.ServiceDate, res.ServiceTime, verb))
}

func (h *ActionsHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var closed *domain.AlreadyClosedError

	switch {
	case errors.As(err, &closed):
		// Someone got here first; tell the owner the outcome, not an error.
		renderPage(w, http.StatusOK, "Already decided",
			fmt.Sprintf("This reservation was already settled as %q.", closed.Reservation.Status))
	case domain.IsStateConflict(err):
		renderPage(w, http.StatusConflict, "Already decided",
			"This reservation was just handled elsewhere. Check the dashboard for its current state.")
	case errors.Is(err, domain.ErrTokenExpired):
		renderPage(w, http.StatusGone, "Link expired",
			"This link has expired. Use the dashboard to manage the reservation.")
	case errors.Is(err, domain.ErrTokenUsed):
		renderPage(w, http.StatusGone, "Link already used",
			"This link was already used. Each link works exactly once.")
	case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrTokenActionMismatch), errors.Is(err, domain.ErrNotFound):
		renderPage(w, http.StatusNotFound, "Invalid link",
			"This link is not valid.")
	default:
		logger.ErrorContext(r.Context(), "action link failed", "error", err)
		renderPage(w, http.StatusInternalServerError, "Something went wrong",
			"Please try again in a moment.")
	}
}

func renderPage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title></head>
<body style="font-family: sans-serif; max-width: 32em; margin: 4em auto; padding: 0 1em;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>
`, html.EscapeString(title), html.EscapeString(title), body)
}
