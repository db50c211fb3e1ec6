package domain

import "time"

// Customer holds per-tenant aggregate visit statistics keyed by phone.
// Refreshed best-effort when a reservation completes.
type Customer struct {
	TenantID int64     `json:"tenant_id"`
	Phone    string    `json:"phone"`
	Name     string    `json:"name"`
	Visits   int       `json:"visits"`
	LastSeen time.Time `json:"last_seen"`
}
