package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tavolo/reservations/internal/clock"
	"github.com/tavolo/reservations/internal/decision"
	"github.com/tavolo/reservations/internal/domain"
	"github.com/tavolo/reservations/internal/mailer"
	"github.com/tavolo/reservations/internal/notify"
	"github.com/tavolo/reservations/internal/policy"
	"github.com/tavolo/reservations/internal/repo/postgres"
	"github.com/tavolo/reservations/pkg/config"
	"github.com/tavolo/reservations/pkg/logger"
)

type ReservationService interface {
	Create(ctx context.Context, tenantID int64, req *domain.CreateReservationReq) (*domain.CreateReservationRes, error)
	Get(ctx context.Context, tenantID, id int64) (*domain.Reservation, error)
	List(ctx context.Context, tenantID int64, status *domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error)
	// Transition applies one legal state-machine step on behalf of the owning
	// tenant. Returns StateConflictError, *AlreadyClosedError or ErrNotFound
	// per the lifecycle rules.
	Transition(ctx context.Context, tenantID, id int64, target domain.ReservationStatus) (*domain.Reservation, error)
	// ConsumeActionLink consumes a one-time click-link token and applies the
	// matching confirm/decline transition.
	ConsumeActionLink(ctx context.Context, token string, action domain.TokenAction) (*domain.Reservation, error)
}

type reservationService struct {
	reservations postgres.ReservationsRepo
	tokens       postgres.TokensRepo
	tenants      postgres.TenantsRepo
	customers    postgres.CustomersRepo
	resolver     *policy.Resolver
	dispatcher   notify.Dispatcher
	mail         mailer.Service
	clk          clock.Clock
	cfg          *config.Config
}

func NewReservationService(
	reservations postgres.ReservationsRepo,
	tokens postgres.TokensRepo,
	tenants postgres.TenantsRepo,
	customers postgres.CustomersRepo,
	resolver *policy.Resolver,
	dispatcher notify.Dispatcher,
	mail mailer.Service,
	clk clock.Clock,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		reservations: reservations,
		tokens:       tokens,
		tenants:      tenants,
		customers:    customers,
		resolver:     resolver,
		dispatcher:   dispatcher,
		mail:         mail,
		clk:          clk,
		cfg:          cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, tenantID int64, req *domain.CreateReservationReq) (*domain.CreateReservationRes, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	pol := s.resolver.Resolve(ctx, tenantID)
	dec := decision.Decide(pol, req.ServiceDate, req.ServiceTime, req.PartySize, s.clk)

	r, err := s.reservations.Create(ctx, tenantID, req, dec.Status)
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	res := &domain.CreateReservationRes{
		ID:            r.ID,
		CorrelationID: r.CorrelationID,
		Status:        r.Status,
		Reason:        dec.Reason,
	}

	if r.Status == domain.ReservationPending {
		confirm, decline, err := s.tokens.IssuePair(ctx, r.ID, s.cfg.Auth.ActionTokenTTL)
		if err != nil {
			// The reservation is durably stored; without links the owner can
			// still act from the dashboard.
			logger.ErrorContext(ctx, "failed to issue action tokens", "error", err, "reservation_id", r.ID)
		} else {
			res.Links = &domain.ActionLinks{
				Confirm: s.actionLink(confirm),
				Decline: s.actionLink(decline),
			}
			s.mailOwner(ctx, tenantID, r, res.Links)
		}
	}

	s.emit(ctx, notify.TransitionEvent(notify.EventReservationCreated, r.Status, r))

	return res, nil
}

func (s *reservationService) validateCreate(req *domain.CreateReservationReq) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return domain.NewValidationError(domain.CodeMissingField, "customer_name", "customer name is required")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return domain.NewValidationError(domain.CodeMissingField, "phone", "phone is required")
	}
	if req.PartySize < domain.MinPartySize || req.PartySize > domain.MaxPartySize {
		return domain.NewValidationError(domain.CodeInvalidPartySize, "party_size",
			fmt.Sprintf("party size must be between %d and %d", domain.MinPartySize, domain.MaxPartySize))
	}
	if !clock.ValidDate(req.ServiceDate) {
		return domain.NewValidationError(domain.CodeInvalidDate, "date", "date must be YYYY-MM-DD")
	}
	norm, ok := clock.NormalizeHHMM(req.ServiceTime)
	if !ok {
		return domain.NewValidationError(domain.CodeInvalidTime, "time", "time must be HH:MM")
	}
	req.ServiceTime = norm

	// Same-day requests for a slot already in the past are rejected outright,
	// not merely parked as pending.
	if req.ServiceDate == s.clk.Today() && req.ServiceTime < s.clk.NowHHMM() {
		return domain.NewValidationError(domain.CodeTimePassedToday, "time", "requested time has already passed today")
	}
	if req.ServiceDate < s.clk.Today() {
		return domain.NewValidationError(domain.CodeInvalidDate, "date", "date is in the past")
	}
	return nil
}

func (s *reservationService) Get(ctx context.Context, tenantID, id int64) (*domain.Reservation, error) {
	r, err := s.reservations.GetForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (s *reservationService) List(ctx context.Context, tenantID int64, status *domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error) {
	return s.reservations.ListForTenant(ctx, tenantID, status, limit, offset)
}

func (s *reservationService) Transition(ctx context.Context, tenantID, id int64, target domain.ReservationStatus) (*domain.Reservation, error) {
	current, err := s.reservations.GetForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}
	return s.transition(ctx, current, target, domain.CloseReasonOwner)
}

// transition is the single primitive behind owner actions, click-links and
// the auto-close sweep: one conditional update keyed on the caller's view of
// the current status, with losers told what actually happened.
func (s *reservationService) transition(ctx context.Context, current *domain.Reservation, target domain.ReservationStatus, closedReason string) (*domain.Reservation, error) {
	if current.Status.IsTerminal() {
		return current, &domain.AlreadyClosedError{Reservation: current}
	}
	if !domain.CanTransition(current.Status, target) {
		return current, &domain.StateConflictError{
			ReservationID: current.ID,
			Expected:      current.Status,
			Current:       current.Status,
		}
	}

	updated, err := s.reservations.TransitionStatus(ctx, current.ID, current.Status, target, closedReason)
	if err != nil {
		return nil, fmt.Errorf("transition reservation %d: %w", current.ID, err)
	}
	if updated == nil {
		// Zero rows: someone else moved the row between our read and write.
		fresh, err := s.reservations.GetByID(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if fresh == nil {
			return nil, domain.ErrNotFound
		}
		if fresh.Status.IsTerminal() {
			return fresh, &domain.AlreadyClosedError{Reservation: fresh}
		}
		return fresh, &domain.StateConflictError{
			ReservationID: current.ID,
			Expected:      current.Status,
			Current:       fresh.Status,
		}
	}

	if updated.Status == domain.ReservationCompleted {
		// Best-effort visit stats; never rolls back the transition.
		if err := s.customers.RecordVisit(ctx, updated.TenantID, updated.Phone, updated.CustomerName, s.clk.Now()); err != nil {
			logger.ErrorContext(ctx, "failed to record customer visit", "error", err, "reservation_id", updated.ID)
		}
	}

	if eventType := notify.EventForStatus(updated.Status); eventType != "" {
		s.emit(ctx, notify.TransitionEvent(eventType, current.Status, updated))
	}

	return updated, nil
}

func (s *reservationService) ConsumeActionLink(ctx context.Context, token string, action domain.TokenAction) (*domain.Reservation, error) {
	t, err := s.tokens.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTokenNotFound
	}
	if t.Action != action {
		return nil, domain.ErrTokenActionMismatch
	}
	if t.UsedAt != nil {
		return nil, domain.ErrTokenUsed
	}
	if s.clk.Now().After(t.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}

	// The atomic mark-used closes the race two concurrent clicks open:
	// exactly one caller gets the row back.
	consumed, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return nil, err
	}
	if consumed == nil {
		return nil, domain.ErrTokenUsed
	}

	current, err := s.reservations.GetByID(ctx, consumed.ReservationID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNotFound
	}

	target := domain.ReservationConfirmed
	if action == domain.TokenActionDecline {
		target = domain.ReservationDeclined
	}
	return s.transition(ctx, current, target, domain.CloseReasonClickLink)
}

func (s *reservationService) actionLink(t *domain.ActionToken) string {
	return fmt.Sprintf("%s/r/%s/%s", strings.TrimRight(s.cfg.Server.BaseURL, "/"), t.Token, t.Action)
}

func (s *reservationService) mailOwner(ctx context.Context, tenantID int64, r *domain.Reservation, links *domain.ActionLinks) {
	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil || t == nil || t.OwnerEmail == "" {
		return
	}
	if err := s.mail.SendPendingApproval(t.OwnerEmail, r, links.Confirm, links.Decline); err != nil {
		logger.ErrorContext(ctx, "failed to mail owner approval links", "error", err, "reservation_id", r.ID)
	}
}

// emit fires the notification after the decision is durably stored. The HTTP
// response never waits on delivery; the dispatcher bounds its own timeout.
func (s *reservationService) emit(ctx context.Context, event notify.Event) {
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.dispatcher.Emit(bg, event); err != nil {
			logger.ErrorContext(bg, "failed to dispatch notification", "error", err, "type", event.Type)
		}
	}()
}
