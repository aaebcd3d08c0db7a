package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN          string `env:"DATABASE_DSN,required=true"`
	RedisURL             string `env:"REDIS_URL,required=true"`
	GatewayBaseURL       string `env:"GATEWAY_BASE_URL,required=true"`
	VAPIDPublicKey       string `env:"VAPID_PUBLIC_KEY,required=true"`
	VAPIDPrivateKey      string `env:"VAPID_PRIVATE_KEY,required=true"`
	VAPIDSubscriber      string `env:"VAPID_SUBSCRIBER,default=ops@kuyruklab.dev"`
	WebhookToken         string `env:"WEBHOOK_TOKEN,required=true"`
	DailyMessageLimit    int    `env:"DAILY_MESSAGE_LIMIT,default=1000"`
	SessionSweepInterval int    `env:"SESSION_SWEEP_INTERVAL_SEC,default=300"`
	APIPort              int    `env:"API_PORT,default=8080"`
	LogLevel             string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
