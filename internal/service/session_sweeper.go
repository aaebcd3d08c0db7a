package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kuyruklab/notify-engine/internal/observability"
	"go.uber.org/zap"
)

// SessionSweeper periodically deactivates messaging sessions past their
// 24h window so expired windows never gate a send as open.
type SessionSweeper struct {
	sessions *SessionService
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewSessionSweeper(sessions *SessionService, interval time.Duration, logger *zap.Logger) (*SessionSweeper, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
	}, nil
}

func (s *SessionSweeper) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs an immediate sweep and then sweeps on every tick until the
// context is cancelled. It blocks; run it on its own goroutine.
func (s *SessionSweeper) Start(ctx context.Context) {
	s.logger.Info("session sweeper started",
		zap.Duration("interval", s.interval),
	)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	count, err := s.sessions.CleanupExpired(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", zap.Error(err))
		return
	}

	if count > 0 {
		s.metrics.AddSessionsCleaned(int(count))
		s.logger.Info("deactivated expired messaging sessions",
			zap.Int64("count", count),
		)
	}
}
