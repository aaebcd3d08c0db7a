package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createNotificationPreferences(),
		createPushSubscriptions(),
		createMessagingSessions(),
		createNotificationLogs(),
		createGatewayConfigs(),
		createNotificationTemplates(),
	})

	return m.Migrate()
}

func createNotificationPreferences() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notification_preferences",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PreferenceModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_preferences_org_phone_updated ON notification_preferences (organization_id, phone, updated_at DESC)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PreferenceModel{})
		},
	}
}

func createPushSubscriptions() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_push_subscriptions",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PushSubscriptionModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_org_phone_endpoint ON push_subscriptions (organization_id, phone, endpoint) WHERE phone <> ''`,
				`CREATE INDEX IF NOT EXISTS idx_subscriptions_org_phone_active ON push_subscriptions (organization_id, phone) WHERE is_active`,
				`CREATE INDEX IF NOT EXISTS idx_subscriptions_org_ticket_active ON push_subscriptions (organization_id, ticket_id) WHERE is_active`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PushSubscriptionModel{})
		},
	}
}

func createMessagingSessions() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_messaging_sessions",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.MessagingSessionModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_sessions_phone_active ON messaging_sessions (phone) WHERE is_active`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.MessagingSessionModel{})
		},
	}
}

func createNotificationLogs() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_notification_logs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeliveryLogModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_logs_org_created ON notification_logs (organization_id, created_at DESC)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeliveryLogModel{})
		},
	}
}

func createGatewayConfigs() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_gateway_configs",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.GatewayConfigModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.GatewayConfigModel{})
		},
	}
}

func createNotificationTemplates() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000006_create_notification_templates",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.TemplateModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_templates_org_type_channel_unique ON notification_templates (organization_id, notification_type, channel)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.TemplateModel{})
		},
	}
}
