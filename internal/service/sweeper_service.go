package service

import (
	"context"
	"errors"

	"github.com/tavolo/reservations/internal/clock"
	"github.com/tavolo/reservations/internal/domain"
	"github.com/tavolo/reservations/internal/repo/postgres"
	"github.com/tavolo/reservations/pkg/logger"
)

type SweepSummary struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	NoShow    int `json:"noshow"`
}

type SweeperService interface {
	// Sweep force-closes reservations still open past their service slot:
	// confirmed rows are assumed honored (completed), pending rows never
	// acted on (no_show).
	Sweep(ctx context.Context) (SweepSummary, error)
}

// transitioner is the slice of the lifecycle service the sweeper drives; the
// sweep reuses the exact same conditional-update primitive as owner actions.
type transitioner interface {
	transition(ctx context.Context, current *domain.Reservation, target domain.ReservationStatus, closedReason string) (*domain.Reservation, error)
}

type sweeperService struct {
	reservations  postgres.ReservationsRepo
	tokens        postgres.TokensRepo
	lifecycle     transitioner
	clk           clock.Clock
	bufferMinutes int
	batchLimit    int
}

func NewSweeperService(reservations postgres.ReservationsRepo, tokens postgres.TokensRepo, lifecycle ReservationService, clk clock.Clock, bufferMinutes, batchLimit int) SweeperService {
	if bufferMinutes < 0 {
		bufferMinutes = 0
	}
	if batchLimit <= 0 {
		batchLimit = 500
	}
	return &sweeperService{
		reservations:  reservations,
		tokens:        tokens,
		lifecycle:     lifecycle.(transitioner),
		clk:           clk,
		bufferMinutes: bufferMinutes,
		batchLimit:    batchLimit,
	}
}

func (s *sweeperService) Sweep(ctx context.Context) (SweepSummary, error) {
	// Wall-clock subtraction, floor-clamped at midnight: a 20:00 slot is
	// swept from 22:00 the same civil day with the default 120m buffer.
	cutoff := clock.MinusMinutes(s.clk.NowHHMM(), s.bufferMinutes)
	today := s.clk.Today()

	overdue, err := s.reservations.SelectOverdue(ctx, today, cutoff, s.batchLimit)
	if err != nil {
		return SweepSummary{}, err
	}

	summary := SweepSummary{Scanned: len(overdue)}
	for i := range overdue {
		r := overdue[i]

		target := domain.ReservationNoShow
		if r.Status == domain.ReservationConfirmed {
			target = domain.ReservationCompleted
		}

		_, err := s.lifecycle.transition(ctx, &r, target, domain.CloseReasonAutoClose)
		if err != nil {
			// A lost optimistic-lock race means someone else already handled
			// the row; that is not a batch failure.
			if domain.IsStateConflict(err) || domain.IsAlreadyClosed(err) || errors.Is(err, domain.ErrNotFound) {
				logger.DebugContext(ctx, "sweep skipped reservation", "reservation_id", r.ID, "reason", err)
				continue
			}
			return summary, err
		}

		switch target {
		case domain.ReservationCompleted:
			summary.Completed++
		case domain.ReservationNoShow:
			summary.NoShow++
		}
	}

	// Token retention piggybacks on the sweep; a failed prune never fails
	// the run.
	if pruned, err := s.tokens.DeleteExpired(ctx); err != nil {
		logger.WarnContext(ctx, "token prune failed", "error", err)
	} else if pruned > 0 {
		logger.InfoContext(ctx, "pruned stale action tokens", "count", pruned)
	}

	logger.InfoContext(ctx, "auto-close sweep finished",
		"scanned", summary.Scanned,
		"completed", summary.Completed,
		"noshow", summary.NoShow,
	)
	return summary, nil
}
