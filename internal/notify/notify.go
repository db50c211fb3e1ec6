// Package notify is the outbound boundary to the external workflow system.
// The lifecycle core only depends on the Dispatcher contract; delivery is
// fire-and-forget and must never affect a stored transition.
package notify

import (
	"context"
	"time"

	"github.com/tavolo/reservations/internal/domain"
)

// Event types emitted on lifecycle transitions.
const (
	EventReservationCreated   = "reservation_created"
	EventReservationConfirmed = "reservation_confirmed"
	EventReservationDeclined  = "reservation_declined"
	EventReservationCompleted = "reservation_completed"
	EventReservationNoShow    = "reservation_no_show"
	EventReservationCancelled = "reservation_cancelled"
)

// EventForStatus maps a terminal-or-confirmed transition target to its event
// type. Returns "" for statuses that never result from a transition.
func EventForStatus(s domain.ReservationStatus) string {
	switch s {
	case domain.ReservationConfirmed:
		return EventReservationConfirmed
	case domain.ReservationDeclined:
		return EventReservationDeclined
	case domain.ReservationCompleted:
		return EventReservationCompleted
	case domain.ReservationNoShow:
		return EventReservationNoShow
	case domain.ReservationCancelled:
		return EventReservationCancelled
	default:
		return ""
	}
}

type Event struct {
	Type         string         `json:"type"`
	RestaurantID int64          `json:"restaurant_id"`
	TS           time.Time      `json:"ts"`
	Data         map[string]any `json:"data"`
}

// TransitionEvent builds the standard payload for a status change.
func TransitionEvent(eventType string, before domain.ReservationStatus, r *domain.Reservation) Event {
	return Event{
		Type:         eventType,
		RestaurantID: r.TenantID,
		TS:           time.Now().UTC(),
		Data: map[string]any{
			"reservation_id": r.ID,
			"correlation_id": r.CorrelationID,
			"before_status":  before,
			"after_status":   r.Status,
			"customer_name":  r.CustomerName,
			"phone":          r.Phone,
			"date":           r.ServiceDate,
			"time":           r.ServiceTime,
			"party_size":     r.PartySize,
			"channel":        r.Channel,
			"area":           r.Area,
			"closed_reason":  r.ClosedReason,
		},
	}
}

type Dispatcher interface {
	Emit(ctx context.Context, event Event) error
}
