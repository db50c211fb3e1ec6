package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavolo/reservations/internal/domain"
)

type TenantsRepo interface {
	GetTenant(ctx context.Context, tenantID int64) (*domain.Tenant, error)
	UpdatePolicy(ctx context.Context, tenantID int64, maxAutoConfirm int, cutoff string) (*domain.Tenant, error)
}

type TenantsRepoImpl struct{ pool *pgxpool.Pool }

func NewTenantsRepo(pool *pgxpool.Pool) *TenantsRepoImpl { return &TenantsRepoImpl{pool: pool} }

const tenantCols = `id, name, owner_email, api_key_hash, max_auto_confirm_people, cutoff_time, created_at, updated_at`

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.OwnerEmail, &t.APIKeyHash,
		&t.MaxAutoConfirmPeople, &t.CutoffTime, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantsRepoImpl) GetTenant(ctx context.Context, tenantID int64) (*domain.Tenant, error) {
	const q = `SELECT ` + tenantCols + ` FROM tenants WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTenant(r.pool.QueryRow(ctx, q, tenantID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TenantsRepoImpl) UpdatePolicy(ctx context.Context, tenantID int64, maxAutoConfirm int, cutoff string) (*domain.Tenant, error) {
	const q = `UPDATE tenants
SET max_auto_confirm_people=$2, cutoff_time=$3, updated_at=now()
WHERE id=$1
RETURNING ` + tenantCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTenant(r.pool.QueryRow(ctx, q, tenantID, maxAutoConfirm, cutoff))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

var _ TenantsRepo = (*TenantsRepoImpl)(nil)
