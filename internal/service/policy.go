package service

import "github.com/kuyruklab/notify-engine/internal/domain"

// Decision reasons surfaced in dispatch responses so operators can always
// tell why messaging was or was not attempted.
const (
	ReasonTicketCreatedHandledEarlier = "ticket_created is delivered during session setup"
	ReasonLegacyPushReachedNoOne      = "no preference on record and push reached no one"
	ReasonLegacyPushDelivered         = "no preference on record and push was delivered"
	ReasonUserChoseBoth               = "user selected push and whatsapp notifications"
	ReasonUserChoseWhatsApp           = "user selected whatsapp notifications"
	ReasonEmergencyFallback           = "push reached no one, falling back so the customer is not left uninformed"
	ReasonUserChosePushOnly           = "user selected 'push only' notifications"
	ReasonNoActiveSession             = "no_active_session"
)

// MessagingDecision is the channel policy verdict.
type MessagingDecision struct {
	Should bool
	Reason string
}

type policyInput struct {
	preference       *domain.Preference
	pushSuccessCount int
	notificationType domain.NotificationType
}

type policyRule struct {
	applies func(policyInput) bool
	outcome func(policyInput) MessagingDecision
}

// messagingPolicy is evaluated in order; the first applicable rule wins.
// Order matters: an explicit "push only" preference suppresses fallback in
// the common case, but a total push failure still gets the customer
// notified through the emergency rule.
var messagingPolicy = []policyRule{
	{
		// Welcome messages go out during session/ticket setup. Sending
		// again here would duplicate them.
		applies: func(in policyInput) bool {
			return in.notificationType == domain.TypeTicketCreated
		},
		outcome: func(policyInput) MessagingDecision {
			return MessagingDecision{Should: false, Reason: ReasonTicketCreatedHandledEarlier}
		},
	},
	{
		// No preference record: legacy behavior, message only when push
		// reached nobody.
		applies: func(in policyInput) bool {
			return in.preference == nil
		},
		outcome: func(in policyInput) MessagingDecision {
			if in.pushSuccessCount == 0 {
				return MessagingDecision{Should: true, Reason: ReasonLegacyPushReachedNoOne}
			}
			return MessagingDecision{Should: false, Reason: ReasonLegacyPushDelivered}
		},
	},
	{
		applies: func(in policyInput) bool {
			return in.preference.PushEnabled && in.preference.WhatsAppFallback
		},
		outcome: func(policyInput) MessagingDecision {
			return MessagingDecision{Should: true, Reason: ReasonUserChoseBoth}
		},
	},
	{
		applies: func(in policyInput) bool {
			return !in.preference.PushEnabled && in.preference.WhatsAppFallback
		},
		outcome: func(policyInput) MessagingDecision {
			return MessagingDecision{Should: true, Reason: ReasonUserChoseWhatsApp}
		},
	},
	{
		applies: func(in policyInput) bool {
			return in.preference.PushEnabled && !in.preference.WhatsAppFallback && in.pushSuccessCount == 0
		},
		outcome: func(policyInput) MessagingDecision {
			return MessagingDecision{Should: true, Reason: ReasonEmergencyFallback}
		},
	},
}

// ShouldSendMessaging decides whether the messaging channel is used for this
// dispatch. Session gating happens separately; a true verdict can still end
// in a recorded no_active_session outcome.
func ShouldSendMessaging(preference *domain.Preference, pushSuccessCount int, notificationType domain.NotificationType) MessagingDecision {
	in := policyInput{
		preference:       preference,
		pushSuccessCount: pushSuccessCount,
		notificationType: notificationType,
	}

	for _, rule := range messagingPolicy {
		if rule.applies(in) {
			return rule.outcome(in)
		}
	}

	return MessagingDecision{Should: false, Reason: ReasonUserChosePushOnly}
}
