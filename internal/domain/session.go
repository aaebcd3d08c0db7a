package domain

import "time"

// SessionWindow is the gateway's customer-initiated conversation window.
// Outbound template messages may only be sent while a session is open.
const SessionWindow = 24 * time.Hour

// MessagingSession is a customer's currently-open messaging conversation
// window. At most one active session exists per phone number.
type MessagingSession struct {
	ID             string
	Phone          string
	OrganizationID string
	TicketID       string
	CustomerName   string
	InitiatedAt    time.Time
	ExpiresAt      time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Open reports whether the session permits outbound messages at the given time.
func (s MessagingSession) Open(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}
