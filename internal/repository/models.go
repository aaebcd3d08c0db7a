package repository

import (
	"time"

	"github.com/kuyruklab/notify-engine/internal/domain"
)

// PreferenceModel is the persistence model for notification_preferences.
type PreferenceModel struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	OrganizationID   string `gorm:"type:uuid;not null;index:idx_preferences_org_phone"`
	Phone            string `gorm:"type:varchar(32);not null;index:idx_preferences_org_phone"`
	PushEnabled      bool   `gorm:"not null;default:true"`
	PushDenied       bool   `gorm:"not null;default:false"`
	WhatsAppFallback bool   `gorm:"column:whatsapp_fallback;not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (PreferenceModel) TableName() string {
	return "notification_preferences"
}

// PushSubscriptionModel is the persistence model for push_subscriptions.
type PushSubscriptionModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	OrganizationID string `gorm:"type:uuid;not null"`
	Phone          string `gorm:"type:varchar(32)"`
	TicketID       string `gorm:"type:uuid"`
	Endpoint       string `gorm:"type:text;not null"`
	P256dh         string `gorm:"type:text;not null"`
	Auth           string `gorm:"type:text;not null"`
	UserAgent      string `gorm:"type:text"`
	IsActive       bool   `gorm:"not null;default:true"`
	LastUsedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (PushSubscriptionModel) TableName() string {
	return "push_subscriptions"
}

// MessagingSessionModel is the persistence model for messaging_sessions.
type MessagingSessionModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	Phone          string `gorm:"type:varchar(32);not null;index"`
	OrganizationID string `gorm:"type:uuid"`
	TicketID       string `gorm:"type:uuid"`
	CustomerName   string `gorm:"type:varchar(255)"`
	InitiatedAt    time.Time
	ExpiresAt      time.Time `gorm:"not null"`
	IsActive       bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (MessagingSessionModel) TableName() string {
	return "messaging_sessions"
}

// DeliveryLogModel is the persistence model for notification_logs.
type DeliveryLogModel struct {
	ID             string                  `gorm:"type:uuid;primaryKey"`
	OrganizationID string                  `gorm:"type:uuid;not null"`
	TicketID       string                  `gorm:"type:uuid"`
	Phone          string                  `gorm:"type:varchar(32)"`
	TicketNumber   string                  `gorm:"type:varchar(32)"`
	Type           domain.NotificationType `gorm:"column:notification_type;type:varchar(32);not null"`
	Channel        domain.Channel          `gorm:"type:varchar(16);not null"`
	Success        bool                    `gorm:"not null"`
	CreatedAt      time.Time
}

func (DeliveryLogModel) TableName() string {
	return "notification_logs"
}

// GatewayConfigModel is the persistence model for gateway_configs.
type GatewayConfigModel struct {
	ID             string               `gorm:"type:uuid;primaryKey"`
	OrganizationID string               `gorm:"type:uuid;not null;uniqueIndex"`
	InstanceID     string               `gorm:"type:varchar(255)"`
	Token          string               `gorm:"type:varchar(255)"`
	Status         domain.GatewayStatus `gorm:"type:varchar(16);not null;default:'inactive'"`
	LastCheckedAt  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (GatewayConfigModel) TableName() string {
	return "gateway_configs"
}

// TemplateModel is the persistence model for notification_templates,
// the per-organization template overrides.
type TemplateModel struct {
	ID             string                  `gorm:"type:uuid;primaryKey"`
	OrganizationID string                  `gorm:"type:uuid;not null;index:idx_templates_org_type_channel"`
	Type           domain.NotificationType `gorm:"column:notification_type;type:varchar(32);not null;index:idx_templates_org_type_channel"`
	Channel        domain.Channel          `gorm:"type:varchar(16);not null;index:idx_templates_org_type_channel"`
	Title          string                  `gorm:"type:text"`
	Body           string                  `gorm:"type:text"`
	Icon           string                  `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (TemplateModel) TableName() string {
	return "notification_templates"
}

// Read-only models for tables owned by the ticket/queue subsystem. The
// pipeline only ever selects from these.

type ticketModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	TicketNumber string
	DepartmentID string
	ServiceID    string
	CustomerName string
	Phone        string
	Status       string
	Position     int
	CreatedAt    time.Time
}

func (ticketModel) TableName() string { return "tickets" }

type departmentModel struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	BranchID string
	Name     string
}

func (departmentModel) TableName() string { return "departments" }

type branchModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	OrganizationID string
	Name           string
}

func (branchModel) TableName() string { return "branches" }

type organizationModel struct {
	ID      string `gorm:"type:uuid;primaryKey"`
	Name    string
	LogoURL string
}

func (organizationModel) TableName() string { return "organizations" }

type serviceModel struct {
	ID   string `gorm:"type:uuid;primaryKey"`
	Name string
}

func (serviceModel) TableName() string { return "services" }

func preferenceModelFromDomain(p *domain.Preference) *PreferenceModel {
	if p == nil {
		return nil
	}

	return &PreferenceModel{
		ID:               p.ID,
		OrganizationID:   p.OrganizationID,
		Phone:            p.Phone,
		PushEnabled:      p.PushEnabled,
		PushDenied:       p.PushDenied,
		WhatsAppFallback: p.WhatsAppFallback,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func preferenceModelToDomain(m *PreferenceModel) *domain.Preference {
	if m == nil {
		return nil
	}

	return &domain.Preference{
		ID:               m.ID,
		OrganizationID:   m.OrganizationID,
		Phone:            m.Phone,
		PushEnabled:      m.PushEnabled,
		PushDenied:       m.PushDenied,
		WhatsAppFallback: m.WhatsAppFallback,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func subscriptionModelFromDomain(s *domain.PushSubscription) *PushSubscriptionModel {
	if s == nil {
		return nil
	}

	return &PushSubscriptionModel{
		ID:             s.ID,
		OrganizationID: s.OrganizationID,
		Phone:          s.Phone,
		TicketID:       s.TicketID,
		Endpoint:       s.Endpoint,
		P256dh:         s.P256dh,
		Auth:           s.Auth,
		UserAgent:      s.UserAgent,
		IsActive:       s.IsActive,
		LastUsedAt:     s.LastUsedAt,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func subscriptionModelToDomain(m *PushSubscriptionModel) *domain.PushSubscription {
	if m == nil {
		return nil
	}

	return &domain.PushSubscription{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Phone:          m.Phone,
		TicketID:       m.TicketID,
		Endpoint:       m.Endpoint,
		P256dh:         m.P256dh,
		Auth:           m.Auth,
		UserAgent:      m.UserAgent,
		IsActive:       m.IsActive,
		LastUsedAt:     m.LastUsedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func sessionModelFromDomain(s *domain.MessagingSession) *MessagingSessionModel {
	if s == nil {
		return nil
	}

	return &MessagingSessionModel{
		ID:             s.ID,
		Phone:          s.Phone,
		OrganizationID: s.OrganizationID,
		TicketID:       s.TicketID,
		CustomerName:   s.CustomerName,
		InitiatedAt:    s.InitiatedAt,
		ExpiresAt:      s.ExpiresAt,
		IsActive:       s.IsActive,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func sessionModelToDomain(m *MessagingSessionModel) *domain.MessagingSession {
	if m == nil {
		return nil
	}

	return &domain.MessagingSession{
		ID:             m.ID,
		Phone:          m.Phone,
		OrganizationID: m.OrganizationID,
		TicketID:       m.TicketID,
		CustomerName:   m.CustomerName,
		InitiatedAt:    m.InitiatedAt,
		ExpiresAt:      m.ExpiresAt,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func deliveryLogModelFromDomain(e *domain.DeliveryLogEntry) *DeliveryLogModel {
	if e == nil {
		return nil
	}

	return &DeliveryLogModel{
		ID:             e.ID,
		OrganizationID: e.OrganizationID,
		TicketID:       e.TicketID,
		Phone:          e.Phone,
		TicketNumber:   e.TicketNumber,
		Type:           e.Type,
		Channel:        e.Channel,
		Success:        e.Success,
		CreatedAt:      e.CreatedAt,
	}
}

func gatewayConfigModelToDomain(m *GatewayConfigModel) *domain.GatewayConfig {
	if m == nil {
		return nil
	}

	return &domain.GatewayConfig{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		InstanceID:     m.InstanceID,
		Token:          m.Token,
		Status:         m.Status,
		LastCheckedAt:  m.LastCheckedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
