// Package audit records delivery attempts for operational analytics.
// Writes are best-effort: a failed audit write never fails or delays the
// delivery it describes.
package audit

import (
	"context"
	"time"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Recorder accepts delivery log entries.
type Recorder interface {
	Record(entry domain.DeliveryLogEntry)
}

// BestEffortLogger wraps the delivery log repository so the never-fail-the-
// caller intent is explicit in the type rather than hidden in empty error
// branches at call sites.
type BestEffortLogger struct {
	logs   repository.DeliveryLogRepository
	logger *zap.Logger
}

func NewBestEffortLogger(logs repository.DeliveryLogRepository, logger *zap.Logger) *BestEffortLogger {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BestEffortLogger{
		logs:   logs,
		logger: logger,
	}
}

// Record writes the entry in the background. Errors are logged and dropped.
func (l *BestEffortLogger) Record(entry domain.DeliveryLogEntry) {
	if l == nil || l.logs == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		if err := l.logs.Create(ctx, &entry); err != nil {
			l.logger.Warn("failed to write delivery log entry",
				zap.String("organizationId", entry.OrganizationID),
				zap.String("channel", entry.Channel.String()),
				zap.Error(err),
			)
		}
	}()
}
