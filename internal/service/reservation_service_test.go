package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tavolo/reservations/internal/clock"
	"github.com/tavolo/reservations/internal/domain"
	"github.com/tavolo/reservations/internal/policy"
	"github.com/tavolo/reservations/pkg/config"
)

type fixture struct {
	svc          *reservationService
	reservations *mockReservationsRepo
	tokens       *mockTokensRepo
	tenants      *mockTenantsRepo
	customers    *mockCustomersRepo
	dispatcher   *mockDispatcher
	mail         *mockMailer
	clk          clock.Clock
}

// newFixture pins "now" to 2026-03-14 10:00 civil time.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	clk, err := clock.NewFixed("Europe/Madrid", time.Date(2026, 3, 14, 10, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("fixed clock: %v", err)
	}

	f := &fixture{
		reservations: newMockReservationsRepo(),
		tokens:       newMockTokensRepo(),
		tenants:      newMockTenantsRepo(),
		customers:    newMockCustomersRepo(),
		dispatcher:   &mockDispatcher{},
		mail:         &mockMailer{},
		clk:          clk,
	}

	cfg := config.Load()
	cfg.Server.BaseURL = "https://api.example.test"

	resolver := policy.NewResolver(f.tenants, policy.Policy{MaxAutoConfirmPeople: 6, CutoffTime: "11:00"})
	f.svc = NewReservationService(
		f.reservations, f.tokens, f.tenants, f.customers,
		resolver, f.dispatcher, f.mail, clk, cfg,
	).(*reservationService)

	return f
}

func validReq() *domain.CreateReservationReq {
	return &domain.CreateReservationReq{
		CustomerName: "Ana Ruiz",
		Phone:        "+34600111222",
		ServiceDate:  "2026-03-20",
		ServiceTime:  "20:00",
		PartySize:    2,
		Channel:      "whatsapp",
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*domain.CreateReservationReq)
		wantCode string
	}{
		{"missing name", func(r *domain.CreateReservationReq) { r.CustomerName = "  " }, domain.CodeMissingField},
		{"missing phone", func(r *domain.CreateReservationReq) { r.Phone = "" }, domain.CodeMissingField},
		{"zero party", func(r *domain.CreateReservationReq) { r.PartySize = 0 }, domain.CodeInvalidPartySize},
		{"oversized party", func(r *domain.CreateReservationReq) { r.PartySize = 51 }, domain.CodeInvalidPartySize},
		{"bad date", func(r *domain.CreateReservationReq) { r.ServiceDate = "20/03/2026" }, domain.CodeInvalidDate},
		{"bad time", func(r *domain.CreateReservationReq) { r.ServiceTime = "8pm" }, domain.CodeInvalidTime},
		{"past date", func(r *domain.CreateReservationReq) { r.ServiceDate = "2026-03-01" }, domain.CodeInvalidDate},
		{"time passed today", func(r *domain.CreateReservationReq) {
			r.ServiceDate = "2026-03-14"
			r.ServiceTime = "09:30"
		}, domain.CodeTimePassedToday},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validReq()
			tc.mutate(req)

			_, err := f.svc.Create(ctx, 1, req)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Code != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, verr.Code)
			}
		})
	}
}

func TestCreateFutureAutoConfirm(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Create(context.Background(), 1, validReq())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Status != domain.ReservationConfirmed {
		t.Fatalf("expected confirmed, got %s", res.Status)
	}
	if res.Reason != domain.ReasonFutureAutoConfirm {
		t.Fatalf("expected future_auto_confirm, got %s", res.Reason)
	}
	if res.Links != nil {
		t.Fatal("confirmed reservation must not carry action links")
	}
}

func TestCreatePendingIssuesLinksAndMail(t *testing.T) {
	f := newFixture(t)
	f.tenants.tenants[1] = &domain.Tenant{ID: 1, OwnerEmail: "owner@example.test", MaxAutoConfirmPeople: 6, CutoffTime: "11:00"}

	req := validReq()
	req.PartySize = 8 // over the ceiling

	res, err := f.svc.Create(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Status != domain.ReservationPending || res.Reason != domain.ReasonGroupOverThreshold {
		t.Fatalf("expected pending/group_over_threshold, got %s/%s", res.Status, res.Reason)
	}
	if res.Links == nil {
		t.Fatal("pending reservation must carry action links")
	}
	if !strings.HasPrefix(res.Links.Confirm, "https://api.example.test/r/") || !strings.HasSuffix(res.Links.Confirm, "/confirm") {
		t.Fatalf("unexpected confirm link %q", res.Links.Confirm)
	}
	if !strings.HasSuffix(res.Links.Decline, "/decline") {
		t.Fatalf("unexpected decline link %q", res.Links.Decline)
	}
	if f.mail.pendingSent != 1 {
		t.Fatalf("expected 1 owner mail, got %d", f.mail.pendingSent)
	}
}

func TestCreateSameDayAfterCutoff(t *testing.T) {
	f := newFixture(t)

	// Policy cutoff "11:00" via defaults; shift now to 11:05.
	loc, _ := time.LoadLocation("Europe/Madrid")
	clk, _ := clock.NewFixed("Europe/Madrid", time.Date(2026, 3, 14, 11, 5, 0, 0, loc))
	f.svc.clk = clk

	req := validReq()
	req.ServiceDate = "2026-03-14"
	req.ServiceTime = "20:00"

	res, err := f.svc.Create(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Status != domain.ReservationPending || res.Reason != domain.ReasonSameDayAfterCutoff {
		t.Fatalf("expected pending/same_day_after_cutoff, got %s/%s", res.Status, res.Reason)
	}
}

func TestTransitionConfirmEmitsEvent(t *testing.T) {
	f := newFixture(t)
	r := f.reservations.seed(&domain.Reservation{TenantID: 1, Status: domain.ReservationPending, Phone: "+34600", CustomerName: "Ana"})

	updated, err := f.svc.Transition(context.Background(), 1, r.ID, domain.ReservationConfirmed)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != domain.ReservationConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}
	if updated.ClosedAt != nil {
		t.Fatal("confirmed is not terminal, closed_at must stay null")
	}

	types := f.dispatcher.eventTypes()
	if len(types) != 1 || types[0] != "reservation_confirmed" {
		t.Fatalf("expected [reservation_confirmed], got %v", types)
	}
}

func TestTransitionCompleteRecordsVisit(t *testing.T) {
	f := newFixture(t)
	r := f.reservations.seed(&domain.Reservation{TenantID: 1, Status: domain.ReservationConfirmed, Phone: "+34600111222", CustomerName: "Ana"})

	updated, err := f.svc.Transition(context.Background(), 1, r.ID, domain.ReservationCompleted)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.ClosedAt == nil {
		t.Fatal("completed must set closed_at")
	}
	if f.customers.visits["+34600111222"] != 1 {
		t.Fatal("expected visit recorded")
	}
}

func TestTransitionVisitFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.customers.err = errors.New("customers table unavailable")
	r := f.reservations.seed(&domain.Reservation{TenantID: 1, Status: domain.ReservationConfirmed})

	updated, err := f.svc.Transition(context.Background(), 1, r.ID, domain.ReservationCompleted)
	if err != nil {
		t.Fatalf("transition must survive visit-stats failure: %v", err)
	}
	if updated.Status != domain.ReservationCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
}

func TestTransitionIllegalFromPending(t *testing.T) {
	f := newFixture(t)
	r := f.reservations.seed(&domain.Reservation{TenantID: 1, Status: domain.ReservationPending})

	// completed only follows confirmed
	_, err := f.svc.Transition(context.Background(), 1, r.ID, domain.ReservationCompleted)
	if !domain.IsStateConflict(err) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTerminalImmutability(t *testing.T) {
	f := newFixture(t)

	terminals := []domain.ReservationStatus{
		domain.ReservationDeclined, domain.ReservationCompleted,
		domain.ReservationNoShow, domain.ReservationCancelled,
	}
	targets := []domain.ReservationStatus{
		domain.ReservationConfirmed, domain.ReservationDeclined, domain.ReservationCompleted,
		domain.ReservationNoShow, domain.ReservationCancelled,
	}

	for _, terminal := range terminals {
		r := f.reservations.seed(&domain.Reservation{TenantID: 1, Status: terminal})
		for _, target := range targets {
			res, err := f.svc.Transition(context.Background(), 1, r.ID, target)
			if !domain.IsAlreadyClosed(err) {
				t.Fatalf("terminal %s -> %s: expected AlreadyClosed, got %v", terminal, target, err)
			}
			if res == nil || res.Status != terminal {
				t.Fatalf("terminal %s must be returned unchanged", terminal)
			}

			stored, _ := f.reservations.GetByID(context.Background(), r.ID)
			if stored.Status != terminal {
				t.Fatalf("stored status mutated from %s to %s", terminal, stored.Status)
			}
		}
	}
}

func TestTransitionNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Transition(context.Background(), 1, 404, domain.ReservationConfirmed); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentConfirmOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	r := f.reservations.seed(&domain.Reservation{TenantID: 1, Status: domain.ReservationPending})

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Transition(context.Background(), 1, r.ID, domain.ReservationConfirmed)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case domain.IsStateConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d (conflicts %d)", wins, conflicts)
	}
}

func TestConsumeActionLinkValidationOrder(t *testing.T) {
	f := newFixture(t)
	used := f.clk.Now().Add(-time.Minute)

	f.tokens.seed(&domain.ActionToken{Token: "mismatch", ReservationID: 1, Action: domain.TokenActionDecline, ExpiresAt: f.clk.Now().Add(time.Hour)})
	f.tokens.seed(&domain.ActionToken{Token: "spent", ReservationID: 1, Action: domain.TokenActionConfirm, ExpiresAt: f.clk.Now().Add(time.Hour), UsedAt: &used})
	f.tokens.seed(&domain.ActionToken{Token: "stale", ReservationID: 1, Action: domain.TokenActionConfirm, ExpiresAt: f.clk.Now().Add(-time.Hour)})
	// a token both used and expired reports used first
	f.tokens.seed(&domain.ActionToken{Token: "spent-stale", ReservationID: 1, Action: domain.TokenActionConfirm, ExpiresAt: f.clk.Now().Add(-time.Hour), UsedAt: &used})

	tests := []struct {
		token   string
		wantErr error
	}{
		{"missing", domain.ErrTokenNotFound},
		{"mismatch", domain.ErrTokenActionMismatch},
		{"spent", domain.ErrTokenUsed},
		{"stale", domain.ErrTokenExpired},
		{"spent-stale", domain.ErrTokenUsed},
	}
	for _, tc := range tests {
		if _, err := f.svc.ConsumeActionLink(context.Background(), tc.token, domain.TokenActionConfirm); !errors.Is(err, tc.wantErr) {
			t.Fatalf("token %s: expected %v, got %v", tc.token, tc.wantErr, err)
		}
	}
}

func TestConsumeActionLinkHappyPath(t *testing.T) {
	f := newFixture(t)
	r := f.reservations.seed(&domain.Reservation{TenantID: 1, Status: domain.ReservationPending})
	f.tokens.seed(&domain.ActionToken{Token: "ok", ReservationID: r.ID, Action: domain.TokenActionDecline, ExpiresAt: f.clk.Now().Add(time.Hour)})

	res, err := f.svc.ConsumeActionLink(context.Background(), "ok", domain.TokenActionDecline)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if res.Status != domain.ReservationDeclined {
		t.Fatalf("expected declined, got %s", res.Status)
	}
	if res.ClosedReason != domain.CloseReasonClickLink {
		t.Fatalf("expected click_link close reason, got %s", res.ClosedReason)
	}
}

func TestTokenSingleUseConcurrent(t *testing.T) {
	f := newFixture(t)
	r := f.reservations.seed(&domain.Reservation{TenantID: 1, Status: domain.ReservationPending})
	f.tokens.seed(&domain.ActionToken{Token: "race", ReservationID: r.ID, Action: domain.TokenActionConfirm, ExpiresAt: f.clk.Now().Add(time.Hour)})

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ConsumeActionLink(context.Background(), "race", domain.TokenActionConfirm)
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrTokenUsed):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful consumption, got %d", wins)
	}
}

func TestConsumeAfterOwnerActedReportsAlreadyClosed(t *testing.T) {
	f := newFixture(t)
	r := f.reservations.seed(&domain.Reservation{TenantID: 1, Status: domain.ReservationCancelled})
	f.tokens.seed(&domain.ActionToken{Token: "late", ReservationID: r.ID, Action: domain.TokenActionConfirm, ExpiresAt: f.clk.Now().Add(time.Hour)})

	res, err := f.svc.ConsumeActionLink(context.Background(), "late", domain.TokenActionConfirm)
	if !domain.IsAlreadyClosed(err) {
		t.Fatalf("expected AlreadyClosed, got %v", err)
	}
	if res == nil || res.Status != domain.ReservationCancelled {
		t.Fatal("expected the current record back for a friendly page")
	}
}

func TestCreateSurvivesTokenIssueFailure(t *testing.T) {
	f := newFixture(t)
	f.tokens.failIssue = errors.New("tokens table unavailable")

	req := validReq()
	req.PartySize = 10

	res, err := f.svc.Create(context.Background(), 1, req)
	if err != nil {
		t.Fatalf("create must not fail when token issuance does: %v", err)
	}
	if res.Status != domain.ReservationPending || res.Links != nil {
		t.Fatalf("expected pending without links, got %s links=%v", res.Status, res.Links)
	}
}
