package domain

import "time"

// Preference is a customer's stored notification channel choice, scoped to
// one organization and one phone number. Historical data may contain
// duplicate rows for the same pair; resolution picks the most recent.
type Preference struct {
	ID               string
	OrganizationID   string
	Phone            string
	PushEnabled      bool
	PushDenied       bool
	WhatsAppFallback bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Choice reconstructs the three-way channel choice from the stored booleans.
func (p Preference) Choice() ChannelChoice {
	switch {
	case p.PushEnabled && p.WhatsAppFallback:
		return ChoiceBoth
	case !p.PushEnabled && p.WhatsAppFallback:
		return ChoiceWhatsApp
	default:
		return ChoicePush
	}
}

// PushAllowed reports whether push delivery is permitted by this preference.
func (p Preference) PushAllowed() bool {
	return p.PushEnabled && !p.PushDenied
}
