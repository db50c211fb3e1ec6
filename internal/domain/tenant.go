package domain

import "time"

const (
	MinPartySize = 1
	MaxPartySize = 50
)

type Tenant struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	OwnerEmail string `json:"owner_email"`

	// APIKeyHash is the argon2id hash of the tenant's API key; the key itself
	// is only shown once at provisioning.
	APIKeyHash string `json:"-"`

	MaxAutoConfirmPeople int    `json:"max_auto_confirm_people"`
	CutoffTime           string `json:"cutoff_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
