package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/messaging"
	"github.com/kuyruklab/notify-engine/internal/phone"
	"github.com/kuyruklab/notify-engine/internal/push"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"github.com/kuyruklab/notify-engine/internal/template"
)

type fakePreferenceRepo struct {
	resolveFn func(ctx context.Context, organizationID, rawPhone string) (*domain.Preference, error)
	upsertFn  func(ctx context.Context, p *domain.Preference) error
}

func (f *fakePreferenceRepo) Resolve(ctx context.Context, organizationID, rawPhone string) (*domain.Preference, error) {
	if f.resolveFn == nil {
		return nil, nil
	}
	return f.resolveFn(ctx, organizationID, rawPhone)
}

func (f *fakePreferenceRepo) Upsert(ctx context.Context, p *domain.Preference) error {
	if f.upsertFn == nil {
		return nil
	}
	return f.upsertFn(ctx, p)
}

// memSessionRepo implements the session store contract in memory, including
// the deactivate-before-insert and row-less-extend semantics.
type memSessionRepo struct {
	sessions []domain.MessagingSession
	now      func() time.Time
}

func newMemSessionRepo(now func() time.Time) *memSessionRepo {
	if now == nil {
		now = time.Now
	}
	return &memSessionRepo{now: now}
}

func (m *memSessionRepo) FindActive(ctx context.Context, rawPhone string) (*domain.MessagingSession, error) {
	normalized := phone.Normalize(rawPhone)
	for i := range m.sessions {
		s := m.sessions[i]
		if s.Phone == normalized && s.IsActive && s.ExpiresAt.After(m.now()) {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memSessionRepo) Create(ctx context.Context, s *domain.MessagingSession) error {
	s.Phone = phone.Normalize(s.Phone)
	for i := range m.sessions {
		if m.sessions[i].Phone == s.Phone && m.sessions[i].IsActive {
			m.sessions[i].IsActive = false
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.IsActive = true
	m.sessions = append(m.sessions, *s)
	return nil
}

func (m *memSessionRepo) Extend(ctx context.Context, rawPhone string, expiresAt time.Time) (bool, error) {
	normalized := phone.Normalize(rawPhone)
	for i := range m.sessions {
		if m.sessions[i].Phone == normalized && m.sessions[i].IsActive && m.sessions[i].ExpiresAt.After(m.now()) {
			m.sessions[i].ExpiresAt = expiresAt
			return true, nil
		}
	}
	return false, nil
}

func (m *memSessionRepo) DeactivateExpired(ctx context.Context) (int64, error) {
	var count int64
	for i := range m.sessions {
		if m.sessions[i].IsActive && m.sessions[i].ExpiresAt.Before(m.now()) {
			m.sessions[i].IsActive = false
			count++
		}
	}
	return count, nil
}

func (m *memSessionRepo) activeCount(rawPhone string) int {
	normalized := phone.Normalize(rawPhone)
	count := 0
	for _, s := range m.sessions {
		if s.Phone == normalized && s.IsActive {
			count++
		}
	}
	return count
}

type fakeSubscriptionFinder struct {
	findActiveFn func(ctx context.Context, organizationID, customerPhone, ticketID string) ([]domain.PushSubscription, error)
}

func (f *fakeSubscriptionFinder) FindActive(ctx context.Context, organizationID, customerPhone, ticketID string) ([]domain.PushSubscription, error) {
	if f.findActiveFn == nil {
		return nil, nil
	}
	return f.findActiveFn(ctx, organizationID, customerPhone, ticketID)
}

type fakePushSender struct {
	sendFn func(ctx context.Context, subscriptions []domain.PushSubscription, payload push.Payload) (*push.Result, error)
}

func (f *fakePushSender) Send(ctx context.Context, subscriptions []domain.PushSubscription, payload push.Payload) (*push.Result, error) {
	if f.sendFn == nil {
		return &push.Result{}, nil
	}
	return f.sendFn(ctx, subscriptions, payload)
}

type fakeMessagingSender struct {
	sendFn func(ctx context.Context, rawPhone string, notificationType domain.NotificationType, organizationID, ticketID string) messaging.SendOutcome
	calls  int
}

func (f *fakeMessagingSender) Send(ctx context.Context, rawPhone string, notificationType domain.NotificationType, organizationID, ticketID string) messaging.SendOutcome {
	f.calls++
	if f.sendFn == nil {
		return messaging.SendOutcome{Attempted: true, Success: true, Phone: phone.Normalize(rawPhone)}
	}
	return f.sendFn(ctx, rawPhone, notificationType, organizationID, ticketID)
}

type fakeSessionChecker struct {
	active bool
}

func (f *fakeSessionChecker) HasActiveSession(ctx context.Context, phone string) bool {
	return f.active
}

type fakeTicketRepo struct {
	findContextFn func(ctx context.Context, ticketID string) (*repository.TicketContext, error)
	findWaitingFn func(ctx context.Context, phone string) (*repository.TicketContext, error)
}

func (f *fakeTicketRepo) FindContext(ctx context.Context, ticketID string) (*repository.TicketContext, error) {
	if f.findContextFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.findContextFn(ctx, ticketID)
}

func (f *fakeTicketRepo) FindMostRecentWaiting(ctx context.Context, phone string) (*repository.TicketContext, error) {
	if f.findWaitingFn == nil {
		return nil, nil
	}
	return f.findWaitingFn(ctx, phone)
}

type fakeRecorder struct {
	entries []domain.DeliveryLogEntry
}

func (f *fakeRecorder) Record(entry domain.DeliveryLogEntry) {
	f.entries = append(f.entries, entry)
}

type fakeRenderer struct {
	renderFn func(ctx context.Context, in template.Input) template.Message
}

func (f *fakeRenderer) Render(ctx context.Context, in template.Input) template.Message {
	if f.renderFn == nil {
		return template.Message{Title: "title", Body: "body"}
	}
	return f.renderFn(ctx, in)
}
