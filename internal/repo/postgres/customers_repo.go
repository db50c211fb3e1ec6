package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavolo/reservations/internal/domain"
)

type CustomersRepo interface {
	// RecordVisit bumps the per-tenant visit aggregate for a phone number.
	// Called best-effort after a completed transition.
	RecordVisit(ctx context.Context, tenantID int64, phone, name string, seenAt time.Time) error
	Get(ctx context.Context, tenantID int64, phone string) (*domain.Customer, error)
}

type CustomersRepoImpl struct{ pool *pgxpool.Pool }

func NewCustomersRepo(pool *pgxpool.Pool) *CustomersRepoImpl { return &CustomersRepoImpl{pool: pool} }

func (r *CustomersRepoImpl) RecordVisit(ctx context.Context, tenantID int64, phone, name string, seenAt time.Time) error {
	const q = `INSERT INTO customers (tenant_id, phone, name, visits, last_seen)
VALUES ($1,$2,$3,1,$4)
ON CONFLICT (tenant_id, phone) DO UPDATE SET
  name = EXCLUDED.name,
  visits = customers.visits + 1,
  last_seen = GREATEST(customers.last_seen, EXCLUDED.last_seen)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, tenantID, phone, name, seenAt)
	return err
}

func (r *CustomersRepoImpl) Get(ctx context.Context, tenantID int64, phone string) (*domain.Customer, error) {
	const q = `SELECT tenant_id, phone, name, visits, last_seen
FROM customers WHERE tenant_id=$1 AND phone=$2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.Customer
	err := r.pool.QueryRow(ctx, q, tenantID, phone).Scan(&c.TenantID, &c.Phone, &c.Name, &c.Visits, &c.LastSeen)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

var _ CustomersRepo = (*CustomersRepoImpl)(nil)
