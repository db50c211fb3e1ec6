package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavolo/reservations/internal/domain"
)

type ReservationsRepo interface {
	Create(ctx context.Context, tenantID int64, in *domain.CreateReservationReq, status domain.ReservationStatus) (*domain.Reservation, error)
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	GetForTenant(ctx context.Context, tenantID, id int64) (*domain.Reservation, error)
	ListForTenant(ctx context.Context, tenantID int64, status *domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error)
	// TransitionStatus performs the single conditional update that backs every
	// lifecycle change: it only succeeds when the stored status still equals
	// expected. Returns (nil, nil) when zero rows matched.
	TransitionStatus(ctx context.Context, id int64, expected, next domain.ReservationStatus, closedReason string) (*domain.Reservation, error)
	// SelectOverdue returns open reservations whose slot is past the sweep
	// cutoff, oldest first, bounded by limit.
	SelectOverdue(ctx context.Context, today, cutoffHHMM string, limit int) ([]domain.Reservation, error)
}

type ReservationsRepoImpl struct{ pool *pgxpool.Pool }

func NewReservationsRepo(pool *pgxpool.Pool) *ReservationsRepoImpl {
	return &ReservationsRepoImpl{pool: pool}
}

const reservationCols = `id, tenant_id, correlation_id, customer_name, phone,
to_char(service_date, 'YYYY-MM-DD'), service_time, party_size, channel, area,
status, closed_at, closed_reason, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var (
		r            domain.Reservation
		closedReason *string
	)
	err := row.Scan(
		&r.ID, &r.TenantID, &r.CorrelationID, &r.CustomerName, &r.Phone,
		&r.ServiceDate, &r.ServiceTime, &r.PartySize, &r.Channel, &r.Area,
		&r.Status, &r.ClosedAt, &closedReason, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if closedReason != nil {
		r.ClosedReason = *closedReason
	}
	return &r, nil
}

func (r *ReservationsRepoImpl) Create(ctx context.Context, tenantID int64, in *domain.CreateReservationReq, status domain.ReservationStatus) (*domain.Reservation, error) {
	const q = `INSERT INTO reservations (
    tenant_id, correlation_id, customer_name, phone,
    service_date, service_time, party_size, channel, area, status
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  RETURNING ` + reservationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanReservation(r.pool.QueryRow(ctx, q,
		tenantID, uuid.NewString(), in.CustomerName, in.Phone,
		in.ServiceDate, in.ServiceTime, in.PartySize, in.Channel, in.Area, status,
	))
}

func (r *ReservationsRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := scanReservation(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func (r *ReservationsRepoImpl) GetForTenant(ctx context.Context, tenantID, id int64) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1 AND tenant_id=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := scanReservation(r.pool.QueryRow(ctx, q, id, tenantID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func (r *ReservationsRepoImpl) ListForTenant(ctx context.Context, tenantID int64, status *domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const qAll = `SELECT ` + reservationCols + ` FROM reservations
WHERE tenant_id=$1
ORDER BY service_date DESC, service_time DESC
LIMIT $2 OFFSET $3`
	const qByStatus = `SELECT ` + reservationCols + ` FROM reservations
WHERE tenant_id=$1 AND status=$2
ORDER BY service_date DESC, service_time DESC
LIMIT $3 OFFSET $4`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rows pgx.Rows
	var err error
	if status != nil {
		rows, err = r.pool.Query(ctx, qByStatus, tenantID, *status, limit, offset)
	} else {
		rows, err = r.pool.Query(ctx, qAll, tenantID, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReservations(rows, limit)
}

func (r *ReservationsRepoImpl) TransitionStatus(ctx context.Context, id int64, expected, next domain.ReservationStatus, closedReason string) (*domain.Reservation, error) {
	// closed_at/closed_reason are set only when the new status is terminal;
	// pending->confirmed leaves them null.
	const q = `UPDATE reservations
SET status=$3,
    closed_at=CASE WHEN $4 THEN now() ELSE closed_at END,
    closed_reason=CASE WHEN $4 THEN $5 ELSE closed_reason END,
    updated_at=now()
WHERE id=$1 AND status=$2
RETURNING ` + reservationCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := scanReservation(r.pool.QueryRow(ctx, q, id, expected, next, next.IsTerminal(), closedReason))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func (r *ReservationsRepoImpl) SelectOverdue(ctx context.Context, today, cutoffHHMM string, limit int) ([]domain.Reservation, error) {
	if limit <= 0 {
		limit = 500
	}
	const q = `SELECT ` + reservationCols + `
FROM reservations
WHERE status IN ('pending','confirmed')
  AND (service_date < $1 OR (service_date = $1 AND service_time <= $2))
ORDER BY service_date, service_time
LIMIT $3`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, today, cutoffHHMM, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReservations(rows, limit)
}

func collectReservations(rows pgx.Rows, capHint int) ([]domain.Reservation, error) {
	rs := make([]domain.Reservation, 0, capHint)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		rs = append(rs, *res)
	}
	return rs, rows.Err()
}

var _ ReservationsRepo = (*ReservationsRepoImpl)(nil)
