package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/tavolo/reservations/internal/domain"
	"github.com/tavolo/reservations/internal/notify"
)

// The mocks mirror the repos' atomicity guarantees with a mutex so the
// concurrency tests exercise the same one-winner semantics as Postgres.

type mockReservationsRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.Reservation

	failTransition error
}

func newMockReservationsRepo() *mockReservationsRepo {
	return &mockReservationsRepo{nextID: 1, rows: make(map[int64]*domain.Reservation)}
}

func (m *mockReservationsRepo) Create(_ context.Context, tenantID int64, in *domain.CreateReservationReq, status domain.ReservationStatus) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := &domain.Reservation{
		ID:            m.nextID,
		TenantID:      tenantID,
		CorrelationID: "corr-test",
		CustomerName:  in.CustomerName,
		Phone:         in.Phone,
		ServiceDate:   in.ServiceDate,
		ServiceTime:   in.ServiceTime,
		PartySize:     in.PartySize,
		Channel:       in.Channel,
		Area:          in.Area,
		Status:        status,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	m.nextID++
	m.rows[r.ID] = r
	return copyReservation(r), nil
}

func (m *mockReservationsRepo) seed(r *domain.Reservation) *domain.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.nextID
		m.nextID++
	} else if r.ID >= m.nextID {
		m.nextID = r.ID + 1
	}
	m.rows[r.ID] = copyReservation(r)
	return copyReservation(r)
}

func (m *mockReservationsRepo) GetByID(_ context.Context, id int64) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok {
		return copyReservation(r), nil
	}
	return nil, nil
}

func (m *mockReservationsRepo) GetForTenant(_ context.Context, tenantID, id int64) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok && r.TenantID == tenantID {
		return copyReservation(r), nil
	}
	return nil, nil
}

func (m *mockReservationsRepo) ListForTenant(_ context.Context, tenantID int64, status *domain.ReservationStatus, limit, offset int) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, r := range m.rows {
		if r.TenantID != tenantID {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		out = append(out, *copyReservation(r))
	}
	return out, nil
}

func (m *mockReservationsRepo) TransitionStatus(_ context.Context, id int64, expected, next domain.ReservationStatus, closedReason string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failTransition != nil {
		return nil, m.failTransition
	}

	r, ok := m.rows[id]
	if !ok || r.Status != expected {
		return nil, nil
	}
	r.Status = next
	if next.IsTerminal() {
		now := time.Now()
		r.ClosedAt = &now
		r.ClosedReason = closedReason
	}
	r.UpdatedAt = time.Now()
	return copyReservation(r), nil
}

func (m *mockReservationsRepo) SelectOverdue(_ context.Context, today, cutoffHHMM string, limit int) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, r := range m.rows {
		if r.Status != domain.ReservationPending && r.Status != domain.ReservationConfirmed {
			continue
		}
		if r.ServiceDate < today || (r.ServiceDate == today && r.ServiceTime <= cutoffHHMM) {
			out = append(out, *copyReservation(r))
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func copyReservation(r *domain.Reservation) *domain.Reservation {
	c := *r
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

type mockTokensRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.ActionToken
	seq    int

	failIssue error
}

func newMockTokensRepo() *mockTokensRepo {
	return &mockTokensRepo{tokens: make(map[string]*domain.ActionToken)}
}

func (m *mockTokensRepo) IssuePair(_ context.Context, reservationID int64, ttl time.Duration) (*domain.ActionToken, *domain.ActionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failIssue != nil {
		return nil, nil, m.failIssue
	}

	issue := func(action domain.TokenAction) *domain.ActionToken {
		m.seq++
		t := &domain.ActionToken{
			Token:         "tok-" + string(action) + "-" + strconv.Itoa(m.seq),
			ReservationID: reservationID,
			Action:        action,
			ExpiresAt:     time.Now().Add(ttl),
			CreatedAt:     time.Now(),
		}
		m.tokens[t.Token] = t
		return t
	}
	return issue(domain.TokenActionConfirm), issue(domain.TokenActionDecline), nil
}

func (m *mockTokensRepo) seed(t *domain.ActionToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t.Token] = t
}

func (m *mockTokensRepo) Get(_ context.Context, token string) (*domain.ActionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[token]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (m *mockTokensRepo) Consume(_ context.Context, token string) (*domain.ActionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok || t.UsedAt != nil {
		return nil, nil
	}
	now := time.Now()
	t.UsedAt = &now
	c := *t
	return &c, nil
}

func (m *mockTokensRepo) DeleteExpired(context.Context) (int64, error) { return 0, nil }

type mockTenantsRepo struct {
	mu      sync.Mutex
	tenants map[int64]*domain.Tenant
	err     error
}

func newMockTenantsRepo() *mockTenantsRepo {
	return &mockTenantsRepo{tenants: make(map[int64]*domain.Tenant)}
}

func (m *mockTenantsRepo) GetTenant(_ context.Context, tenantID int64) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if t, ok := m.tenants[tenantID]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (m *mockTenantsRepo) UpdatePolicy(_ context.Context, tenantID int64, maxAutoConfirm int, cutoff string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, nil
	}
	t.MaxAutoConfirmPeople = maxAutoConfirm
	t.CutoffTime = cutoff
	c := *t
	return &c, nil
}

type mockCustomersRepo struct {
	mu     sync.Mutex
	visits map[string]int
	err    error
}

func newMockCustomersRepo() *mockCustomersRepo {
	return &mockCustomersRepo{visits: make(map[string]int)}
}

func (m *mockCustomersRepo) RecordVisit(_ context.Context, tenantID int64, phone, name string, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.visits[phone]++
	return nil
}

func (m *mockCustomersRepo) Get(_ context.Context, tenantID int64, phone string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.visits[phone]; ok {
		return &domain.Customer{TenantID: tenantID, Phone: phone, Visits: n}, nil
	}
	return nil, nil
}

type mockDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (m *mockDispatcher) Emit(_ context.Context, event notify.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// eventTypes waits briefly for fire-and-forget emits to land, then returns
// the types seen so far.
func (m *mockDispatcher) eventTypes() []string {
	deadline := time.Now().Add(time.Second)
	for {
		m.mu.Lock()
		n := len(m.events)
		m.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.Type)
	}
	return types
}

type mockMailer struct {
	mu          sync.Mutex
	pendingSent int
	lastConfirm string
	lastDecline string
}

func (m *mockMailer) Send(string, string, string, string, string) (string, error) { return "", nil }

func (m *mockMailer) SendPendingApproval(_ string, _ *domain.Reservation, confirmLink, declineLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingSent++
	m.lastConfirm = confirmLink
	m.lastDecline = declineLink
	return nil
}

