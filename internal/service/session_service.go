package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"go.uber.org/zap"
)

// SessionService is the gate in front of outbound template messages: the
// gateway only accepts them inside a customer-initiated 24h window.
type SessionService struct {
	sessions repository.SessionRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionService(sessions repository.SessionRepository, logger *zap.Logger) (*SessionService, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionService{
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// HasActiveSession reports whether an open window exists. Lookup failures
// degrade to false: without a confirmed window the gateway would reject the
// send anyway.
func (s *SessionService) HasActiveSession(ctx context.Context, phone string) bool {
	return s.ActiveSession(ctx, phone) != nil
}

// ActiveSession returns the open window for a phone, or nil. Lookup failures
// degrade to nil.
func (s *SessionService) ActiveSession(ctx context.Context, phone string) *domain.MessagingSession {
	session, err := s.sessions.FindActive(ctx, phone)
	if err != nil {
		s.logger.Warn("session lookup failed, treating as no active session",
			zap.Error(err),
		)
		return nil
	}
	return session
}

// CreateSession opens a fresh 24h window, closing any prior active window
// for the phone first.
func (s *SessionService) CreateSession(ctx context.Context, phone, organizationID, ticketID, customerName string) (*domain.MessagingSession, error) {
	now := s.now().UTC()
	session := &domain.MessagingSession{
		Phone:          phone,
		OrganizationID: organizationID,
		TicketID:       ticketID,
		CustomerName:   customerName,
		InitiatedAt:    now,
		ExpiresAt:      now.Add(domain.SessionWindow),
		IsActive:       true,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create messaging session: %w", err)
	}

	return session, nil
}

// ExtendSession pushes the expiry of the existing active window to now+24h.
// It returns false when there is no active window to extend.
func (s *SessionService) ExtendSession(ctx context.Context, phone string) (bool, error) {
	extended, err := s.sessions.Extend(ctx, phone, s.now().UTC().Add(domain.SessionWindow))
	if err != nil {
		return false, fmt.Errorf("failed to extend messaging session: %w", err)
	}
	return extended, nil
}

// CleanupExpired bulk-deactivates windows past their expiry.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.sessions.DeactivateExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}
	return count, nil
}
