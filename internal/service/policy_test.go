package service

import (
	"testing"

	"github.com/kuyruklab/notify-engine/internal/domain"
)

func TestShouldSendMessagingTicketCreatedAlwaysSuppressed(t *testing.T) {
	t.Parallel()

	preferences := []*domain.Preference{
		nil,
		{PushEnabled: true, WhatsAppFallback: true},
		{PushEnabled: false, WhatsAppFallback: true},
		{PushEnabled: true, WhatsAppFallback: false},
	}

	for _, pref := range preferences {
		for _, successes := range []int{0, 1, 5} {
			decision := ShouldSendMessaging(pref, successes, domain.TypeTicketCreated)
			if decision.Should {
				t.Fatalf("ShouldSendMessaging(pref=%+v, successes=%d, ticket_created) = true, want false", pref, successes)
			}
			if decision.Reason != ReasonTicketCreatedHandledEarlier {
				t.Fatalf("reason = %q, want %q", decision.Reason, ReasonTicketCreatedHandledEarlier)
			}
		}
	}
}

func TestShouldSendMessagingNoPreferenceLegacyFallback(t *testing.T) {
	t.Parallel()

	zero := ShouldSendMessaging(nil, 0, domain.TypeYourTurn)
	if !zero.Should {
		t.Fatal("no preference + zero push successes should send messaging")
	}
	if zero.Reason != ReasonLegacyPushReachedNoOne {
		t.Fatalf("reason = %q, want %q", zero.Reason, ReasonLegacyPushReachedNoOne)
	}

	one := ShouldSendMessaging(nil, 1, domain.TypeYourTurn)
	if one.Should {
		t.Fatal("no preference + delivered push should not send messaging")
	}
	if one.Reason != ReasonLegacyPushDelivered {
		t.Fatalf("reason = %q, want %q", one.Reason, ReasonLegacyPushDelivered)
	}
}

func TestShouldSendMessagingExplicitChoices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		preference *domain.Preference
		successes  int
		want       bool
		wantReason string
	}{
		{
			name:       "both always sends",
			preference: &domain.Preference{PushEnabled: true, WhatsAppFallback: true},
			successes:  3,
			want:       true,
			wantReason: ReasonUserChoseBoth,
		},
		{
			name:       "whatsapp only always sends",
			preference: &domain.Preference{PushEnabled: false, WhatsAppFallback: true},
			successes:  0,
			want:       true,
			wantReason: ReasonUserChoseWhatsApp,
		},
		{
			name:       "push only with total push failure falls back",
			preference: &domain.Preference{PushEnabled: true, WhatsAppFallback: false},
			successes:  0,
			want:       true,
			wantReason: ReasonEmergencyFallback,
		},
		{
			name:       "push only with delivered push stays silent",
			preference: &domain.Preference{PushEnabled: true, WhatsAppFallback: false},
			successes:  1,
			want:       false,
			wantReason: ReasonUserChosePushOnly,
		},
		{
			name:       "push disabled without fallback stays silent",
			preference: &domain.Preference{PushEnabled: false, WhatsAppFallback: false},
			successes:  0,
			want:       false,
			wantReason: ReasonUserChosePushOnly,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			decision := ShouldSendMessaging(tt.preference, tt.successes, domain.TypeQueueUpdate)
			if decision.Should != tt.want {
				t.Fatalf("Should = %v, want %v", decision.Should, tt.want)
			}
			if decision.Reason != tt.wantReason {
				t.Fatalf("Reason = %q, want %q", decision.Reason, tt.wantReason)
			}
		})
	}
}
