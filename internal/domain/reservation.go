package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationDeclined  ReservationStatus = "declined"
	ReservationCompleted ReservationStatus = "completed"
	ReservationNoShow    ReservationStatus = "no_show"
	ReservationCancelled ReservationStatus = "cancelled"
)

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch ReservationStatus(s) {
	case ReservationPending, ReservationConfirmed, ReservationDeclined,
		ReservationCompleted, ReservationNoShow, ReservationCancelled:
		return ReservationStatus(s), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is permitted from s.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationDeclined, ReservationCompleted, ReservationNoShow, ReservationCancelled:
		return true
	default:
		return false
	}
}

// CanTransition is the single legality table for the reservation lifecycle.
// Confirm/decline only apply to pending rows; complete only to confirmed;
// no-show and cancel to either live state.
func CanTransition(from, to ReservationStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch to {
	case ReservationConfirmed, ReservationDeclined:
		return from == ReservationPending
	case ReservationCompleted:
		return from == ReservationConfirmed
	case ReservationNoShow, ReservationCancelled:
		return from == ReservationPending || from == ReservationConfirmed
	default:
		return false
	}
}

// Decision reason codes recorded when the initial status is decided.
const (
	ReasonGroupOverThreshold    = "group_over_threshold"
	ReasonSameDayAfterCutoff    = "same_day_after_cutoff"
	ReasonSameDayBeforeCutoff   = "same_day_before_cutoff"
	ReasonCutoffInvalidFailsafe = "cutoff_invalid_failsafe"
	ReasonFutureAutoConfirm     = "future_auto_confirm"
)

// Closed reasons recorded on terminal transitions.
const (
	CloseReasonOwner     = "owner_action"
	CloseReasonClickLink = "click_link"
	CloseReasonAutoClose = "auto_close_cron"
)

type Reservation struct {
	ID            int64  `json:"id"`
	TenantID      int64  `json:"tenant_id"`
	CorrelationID string `json:"correlation_id"`

	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`

	// ServiceDate is a civil calendar date (YYYY-MM-DD) and ServiceTime a
	// zero-padded wall-clock string (HH:MM). Both are compared lexically;
	// neither carries a timezone on purpose.
	ServiceDate string `json:"service_date"`
	ServiceTime string `json:"service_time"`

	PartySize int    `json:"party_size"`
	Channel   string `json:"channel"`
	Area      string `json:"area"`

	Status       ReservationStatus `json:"status"`
	ClosedAt     *time.Time        `json:"closed_at,omitempty"`
	ClosedReason string            `json:"closed_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateReservationReq struct {
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	ServiceDate  string `json:"date"`
	ServiceTime  string `json:"time"`
	PartySize    int    `json:"party_size"`
	Channel      string `json:"channel"`
	Area         string `json:"area"`
}

// ActionLinks are the one-time owner links returned for pending reservations.
type ActionLinks struct {
	Confirm string `json:"confirm"`
	Decline string `json:"decline"`
}

type CreateReservationRes struct {
	ID            int64             `json:"id"`
	CorrelationID string            `json:"correlation_id"`
	Status        ReservationStatus `json:"status"`
	Reason        string            `json:"reason"`
	Links         *ActionLinks      `json:"links,omitempty"`
}
