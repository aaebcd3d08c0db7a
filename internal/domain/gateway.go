package domain

import "time"

// GatewayStatus is the cached connectivity state of an organization's
// messaging gateway instance.
type GatewayStatus string

const (
	GatewayStatusActive   GatewayStatus = "active"
	GatewayStatusInactive GatewayStatus = "inactive"
	GatewayStatusError    GatewayStatus = "error"
)

func (s GatewayStatus) String() string { return string(s) }

// GatewayConfig holds one organization's messaging gateway credentials.
// Each organization has its own instance and token; one tenant's broken or
// missing credentials never affect another's sends.
type GatewayConfig struct {
	ID             string
	OrganizationID string
	InstanceID     string
	Token          string
	Status         GatewayStatus
	LastCheckedAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Complete reports whether the config carries usable credentials.
func (g GatewayConfig) Complete() bool {
	return g.InstanceID != "" && g.Token != ""
}
