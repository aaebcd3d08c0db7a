package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationType identifies the queue event a notification announces.
type NotificationType string

const (
	TypeTicketCreated   NotificationType = "ticket_created"
	TypeAlmostYourTurn  NotificationType = "almost_your_turn"
	TypeYourTurn        NotificationType = "your_turn"
	TypeTicketCancelled NotificationType = "ticket_cancelled"
	TypeQueueUpdate     NotificationType = "queue_update"
)

func (t NotificationType) String() string { return string(t) }

func (t NotificationType) IsValid() bool {
	switch t {
	case TypeTicketCreated, TypeAlmostYourTurn, TypeYourTurn, TypeTicketCancelled, TypeQueueUpdate:
		return true
	}
	return false
}

func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid notification type %q", ErrValidation, s)
	}
	return t, nil
}

// Channel represents a delivery channel.
type Channel string

const (
	ChannelPush     Channel = "push"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelPush, ChannelWhatsApp:
		return true
	}
	return false
}

// ChannelChoice is a customer's three-way channel preference.
type ChannelChoice string

const (
	ChoicePush     ChannelChoice = "push"
	ChoiceWhatsApp ChannelChoice = "whatsapp"
	ChoiceBoth     ChannelChoice = "both"
)

func (c ChannelChoice) String() string { return string(c) }

func (c ChannelChoice) IsValid() bool {
	switch c {
	case ChoicePush, ChoiceWhatsApp, ChoiceBoth:
		return true
	}
	return false
}

func ParseChannelChoice(s string) (ChannelChoice, error) {
	c := ChannelChoice(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid channel choice %q", ErrValidation, s)
	}
	return c, nil
}

// PayloadOverrides carries optional caller-supplied presentation fields.
type PayloadOverrides struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// DispatchRequest is the unit of work flowing through the pipeline.
// It is transient and never persisted.
type DispatchRequest struct {
	OrganizationID string
	TicketID       string
	CustomerPhone  string
	Type           NotificationType
	Payload        *PayloadOverrides
}

// MissingFields lists required fields absent from the request.
func (r DispatchRequest) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(r.OrganizationID) == "" {
		missing = append(missing, "organizationId")
	}
	if strings.TrimSpace(r.TicketID) == "" {
		missing = append(missing, "ticketId")
	}
	if strings.TrimSpace(r.CustomerPhone) == "" {
		missing = append(missing, "customerPhone")
	}
	if strings.TrimSpace(string(r.Type)) == "" {
		missing = append(missing, "notificationType")
	}
	if r.Payload == nil {
		missing = append(missing, "payload")
	}
	return missing
}

func (r DispatchRequest) Validate() error {
	if missing := r.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: invalid notification type %q", ErrValidation, r.Type)
	}
	return nil
}

// DeliveryLogEntry is the append-only audit record for one delivery attempt.
type DeliveryLogEntry struct {
	ID             string
	OrganizationID string
	TicketID       string
	Phone          string
	TicketNumber   string
	Type           NotificationType
	Channel        Channel
	Success        bool
	CreatedAt      time.Time
}
