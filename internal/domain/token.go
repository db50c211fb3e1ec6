package domain

import "time"

type TokenAction string

const (
	TokenActionConfirm TokenAction = "confirm"
	TokenActionDecline TokenAction = "decline"
)

// ActionToken is a single-use, action-scoped credential embedded in the
// no-auth owner links. A token with non-nil UsedAt never authorizes again;
// neither does one past ExpiresAt.
type ActionToken struct {
	Token         string      `json:"token"`
	ReservationID int64       `json:"reservation_id"`
	Action        TokenAction `json:"action"`
	ExpiresAt     time.Time   `json:"expires_at"`
	UsedAt        *time.Time  `json:"used_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}
