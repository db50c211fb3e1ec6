// Package decision holds the pure initial-status rules for an incoming
// reservation request.
package decision

import (
	"github.com/tavolo/reservations/internal/clock"
	"github.com/tavolo/reservations/internal/domain"
	"github.com/tavolo/reservations/internal/policy"
)

type Result struct {
	Status domain.ReservationStatus
	Reason string
}

// Decide maps (policy, requested slot, party size, now) to the initial
// status. Rule order is fixed product policy:
//
//  1. party size over the tenant ceiling goes to pending, whatever the date;
//  2. same-day requests auto-confirm only before the cutoff;
//  3. future dates auto-confirm.
//
// An unparseable cutoff fails safe to pending instead of silently
// auto-confirming. All time comparisons are lexical on zero-padded HH:MM.
func Decide(p policy.Policy, serviceDate, serviceTime string, partySize int, clk clock.Clock) Result {
	if partySize > p.MaxAutoConfirmPeople {
		return Result{Status: domain.ReservationPending, Reason: domain.ReasonGroupOverThreshold}
	}

	if serviceDate == clk.Today() {
		if !clock.ValidHHMM(p.CutoffTime) {
			return Result{Status: domain.ReservationPending, Reason: domain.ReasonCutoffInvalidFailsafe}
		}
		if clk.NowHHMM() >= p.CutoffTime {
			return Result{Status: domain.ReservationPending, Reason: domain.ReasonSameDayAfterCutoff}
		}
		return Result{Status: domain.ReservationConfirmed, Reason: domain.ReasonSameDayBeforeCutoff}
	}

	return Result{Status: domain.ReservationConfirmed, Reason: domain.ReasonFutureAutoConfirm}
}
