package policy

import (
	"context"

	"github.com/tavolo/reservations/internal/clock"
	"github.com/tavolo/reservations/internal/domain"
	"github.com/tavolo/reservations/pkg/logger"
)

// Policy is the per-tenant configuration the decision engine runs against.
type Policy struct {
	MaxAutoConfirmPeople int
	CutoffTime           string
}

// TenantReader is the narrow repository view the resolver needs.
type TenantReader interface {
	GetTenant(ctx context.Context, tenantID int64) (*domain.Tenant, error)
}

type Resolver struct {
	tenants  TenantReader
	defaults Policy
}

func NewResolver(tenants TenantReader, defaults Policy) *Resolver {
	if defaults.MaxAutoConfirmPeople < domain.MinPartySize || defaults.MaxAutoConfirmPeople > domain.MaxPartySize {
		defaults.MaxAutoConfirmPeople = 6
	}
	if !clock.ValidHHMM(defaults.CutoffTime) {
		defaults.CutoffTime = "11:00"
	}
	return &Resolver{tenants: tenants, defaults: defaults}
}

func (r *Resolver) Defaults() Policy {
	return r.defaults
}

// Resolve reads the tenant's stored policy. A missing row, malformed values
// or a lookup failure all degrade to the defaults; resolution never blocks
// reservation creation.
func (r *Resolver) Resolve(ctx context.Context, tenantID int64) Policy {
	t, err := r.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		logger.WarnContext(ctx, "policy lookup failed, using defaults", "tenant_id", tenantID, "error", err)
		return r.defaults
	}
	if t == nil {
		logger.WarnContext(ctx, "tenant not found, using default policy", "tenant_id", tenantID)
		return r.defaults
	}

	p := r.defaults
	if t.MaxAutoConfirmPeople >= domain.MinPartySize && t.MaxAutoConfirmPeople <= domain.MaxPartySize {
		p.MaxAutoConfirmPeople = t.MaxAutoConfirmPeople
	}
	if norm, ok := clock.NormalizeHHMM(t.CutoffTime); ok {
		p.CutoffTime = norm
	}
	return p
}
