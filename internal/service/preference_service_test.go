package service

import (
	"context"
	"errors"
	"testing"

	"github.com/kuyruklab/notify-engine/internal/domain"
)

func TestSetPreferenceChoiceMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		choice               domain.ChannelChoice
		pushEnabled          bool
		wantPushEnabled      bool
		wantWhatsAppFallback bool
	}{
		{choice: domain.ChoicePush, pushEnabled: true, wantPushEnabled: true, wantWhatsAppFallback: false},
		{choice: domain.ChoicePush, pushEnabled: false, wantPushEnabled: false, wantWhatsAppFallback: false},
		{choice: domain.ChoiceWhatsApp, pushEnabled: true, wantPushEnabled: false, wantWhatsAppFallback: true},
		{choice: domain.ChoiceBoth, pushEnabled: true, wantPushEnabled: true, wantWhatsAppFallback: true},
		{choice: domain.ChoiceBoth, pushEnabled: false, wantPushEnabled: false, wantWhatsAppFallback: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.choice), func(t *testing.T) {
			t.Parallel()

			var stored *domain.Preference
			repo := &fakePreferenceRepo{
				upsertFn: func(ctx context.Context, p *domain.Preference) error {
					stored = p
					return nil
				},
				resolveFn: func(ctx context.Context, organizationID, rawPhone string) (*domain.Preference, error) {
					return stored, nil
				},
			}

			svc, err := NewPreferenceService(repo, nil)
			if err != nil {
				t.Fatalf("NewPreferenceService() error = %v", err)
			}

			svc.SetPreference(context.Background(), "org-1", "+905551112233", tt.pushEnabled, false, tt.choice)

			if stored == nil {
				t.Fatal("expected preference to be written")
			}
			if stored.PushEnabled != tt.wantPushEnabled {
				t.Fatalf("PushEnabled = %v, want %v", stored.PushEnabled, tt.wantPushEnabled)
			}
			if stored.WhatsAppFallback != tt.wantWhatsAppFallback {
				t.Fatalf("WhatsAppFallback = %v, want %v", stored.WhatsAppFallback, tt.wantWhatsAppFallback)
			}

			// Round-trip: resolving must reconstruct the original choice for
			// combinations where the choice is representable.
			resolved := svc.Resolve(context.Background(), "org-1", "+905551112233")
			if resolved == nil {
				t.Fatal("expected preference to resolve")
			}
			if tt.pushEnabled || tt.choice == domain.ChoiceWhatsApp {
				if resolved.Choice() != tt.choice {
					t.Fatalf("Choice() = %s, want %s", resolved.Choice(), tt.choice)
				}
			}
		})
	}
}

func TestSetPreferenceWriteFailureDoesNotPanic(t *testing.T) {
	t.Parallel()

	repo := &fakePreferenceRepo{
		upsertFn: func(ctx context.Context, p *domain.Preference) error {
			return errors.New("store unavailable")
		},
	}

	svc, err := NewPreferenceService(repo, nil)
	if err != nil {
		t.Fatalf("NewPreferenceService() error = %v", err)
	}

	// Best-effort write: the failure must be swallowed.
	svc.SetPreference(context.Background(), "org-1", "5551112233", true, false, domain.ChoiceBoth)
}

func TestResolveDegradesLookupErrorsToNil(t *testing.T) {
	t.Parallel()

	repo := &fakePreferenceRepo{
		resolveFn: func(ctx context.Context, organizationID, rawPhone string) (*domain.Preference, error) {
			return nil, errors.New("store unavailable")
		},
	}

	svc, err := NewPreferenceService(repo, nil)
	if err != nil {
		t.Fatalf("NewPreferenceService() error = %v", err)
	}

	if pref := svc.Resolve(context.Background(), "org-1", "5551112233"); pref != nil {
		t.Fatalf("Resolve() = %+v, want nil on lookup failure", pref)
	}
}
