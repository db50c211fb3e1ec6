package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavolo/reservations/internal/domain"
)

type TokensRepo interface {
	// IssuePair creates one confirm and one decline token for a freshly
	// pending reservation, both expiring ttl from now.
	IssuePair(ctx context.Context, reservationID int64, ttl time.Duration) (confirm, decline *domain.ActionToken, err error)
	Get(ctx context.Context, token string) (*domain.ActionToken, error)
	// Consume marks the token used iff it is still unused; exactly one of two
	// racing consumers wins. Returns (nil, nil) when the row was already used
	// or does not exist.
	Consume(ctx context.Context, token string) (*domain.ActionToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type TokensRepoImpl struct{ pool *pgxpool.Pool }

func NewTokensRepo(pool *pgxpool.Pool) *TokensRepoImpl { return &TokensRepoImpl{pool: pool} }

const tokenCols = `token, reservation_id, action, expires_at, used_at, created_at`

func newToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	return hex.EncodeToString(b)
}

func scanToken(row pgx.Row) (*domain.ActionToken, error) {
	var t domain.ActionToken
	err := row.Scan(&t.Token, &t.ReservationID, &t.Action, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TokensRepoImpl) IssuePair(ctx context.Context, reservationID int64, ttl time.Duration) (*domain.ActionToken, *domain.ActionToken, error) {
	const q = `INSERT INTO action_tokens (token, reservation_id, action, expires_at)
VALUES ($1,$2,$3,$4)
RETURNING ` + tokenCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	expires := time.Now().Add(ttl)

	confirm, err := scanToken(r.pool.QueryRow(ctx, q, newToken(), reservationID, domain.TokenActionConfirm, expires))
	if err != nil {
		return nil, nil, err
	}
	decline, err := scanToken(r.pool.QueryRow(ctx, q, newToken(), reservationID, domain.TokenActionDecline, expires))
	if err != nil {
		return nil, nil, err
	}
	return confirm, decline, nil
}

func (r *TokensRepoImpl) Get(ctx context.Context, token string) (*domain.ActionToken, error) {
	const q = `SELECT ` + tokenCols + ` FROM action_tokens WHERE token=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanToken(r.pool.QueryRow(ctx, q, token))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TokensRepoImpl) Consume(ctx context.Context, token string) (*domain.ActionToken, error) {
	// Mark-used and return atomically, only if not yet used. Expiry is
	// checked by the caller against the returned row so an expired token
	// still reports Expired rather than NotFound.
	const q = `UPDATE action_tokens
SET used_at = now()
WHERE token = $1 AND used_at IS NULL
RETURNING ` + tokenCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanToken(r.pool.QueryRow(ctx, q, token))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TokensRepoImpl) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM action_tokens
WHERE (used_at IS NOT NULL AND used_at < now() - interval '30 days')
   OR (used_at IS NULL AND expires_at < now() - interval '30 days')`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ TokensRepo = (*TokensRepoImpl)(nil)
