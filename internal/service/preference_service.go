package service

import (
	"context"
	"fmt"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"go.uber.org/zap"
)

// PreferenceService maps the customer-facing three-way channel choice onto
// the stored boolean pair and resolves preferences at decision time.
type PreferenceService struct {
	preferences repository.PreferenceRepository
	logger      *zap.Logger
}

func NewPreferenceService(preferences repository.PreferenceRepository, logger *zap.Logger) (*PreferenceService, error) {
	if preferences == nil {
		return nil, fmt.Errorf("preference repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PreferenceService{
		preferences: preferences,
		logger:      logger,
	}, nil
}

// Resolve returns the effective preference or nil. Lookup failures degrade
// to "no preference found" so a flaky store never blocks a dispatch.
func (s *PreferenceService) Resolve(ctx context.Context, organizationID, phone string) *domain.Preference {
	pref, err := s.preferences.Resolve(ctx, organizationID, phone)
	if err != nil {
		s.logger.Warn("preference lookup failed, treating as no preference",
			zap.String("organizationId", organizationID),
			zap.Error(err),
		)
		return nil
	}
	return pref
}

// SetPreference upserts the stored preference from a channel choice. The
// write is best-effort: failures are logged and swallowed because a missed
// preference update must not fail the subscribe flow that triggered it.
func (s *PreferenceService) SetPreference(ctx context.Context, organizationID, phone string, pushEnabled, pushDenied bool, choice domain.ChannelChoice) {
	pref := &domain.Preference{
		OrganizationID: organizationID,
		Phone:          phone,
	}

	switch choice {
	case domain.ChoiceWhatsApp:
		pref.PushEnabled = false
		pref.WhatsAppFallback = true
	case domain.ChoiceBoth:
		pref.PushEnabled = pushEnabled
		pref.WhatsAppFallback = true
	default:
		pref.PushEnabled = pushEnabled
		pref.WhatsAppFallback = false
	}
	pref.PushDenied = pushDenied

	if err := s.preferences.Upsert(ctx, pref); err != nil {
		s.logger.Warn("failed to persist notification preference",
			zap.String("organizationId", organizationID),
			zap.String("choice", choice.String()),
			zap.Error(err),
		)
	}
}
