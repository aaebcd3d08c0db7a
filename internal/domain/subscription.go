package domain

import "time"

// PushSubscription is one browser/device Web Push endpoint. Newer rows are
// keyed by customer phone; legacy rows carry only a ticket ID.
type PushSubscription struct {
	ID             string
	OrganizationID string
	Phone          string
	TicketID       string
	Endpoint       string
	P256dh         string
	Auth           string
	UserAgent      string
	IsActive       bool
	LastUsedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
