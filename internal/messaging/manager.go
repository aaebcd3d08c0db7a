package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kuyruklab/notify-engine/internal/domain"
	"github.com/kuyruklab/notify-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	// testRecipient is an intentionally invalid number used for connection
	// checks; the gateway's rejection is the connectivity proof.
	testRecipient = "0000000000"

	statusCacheTTL = 10 * time.Minute
)

type cachedStatus struct {
	status    domain.GatewayStatus
	checkedAt time.Time
}

// InstanceManager resolves and health-checks per-organization gateway
// credentials. Status is cached in process and persisted so repeated sends
// skip redundant checks.
type InstanceManager struct {
	configs repository.GatewayConfigRepository
	client  *GatewayClient
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedStatus
}

func NewInstanceManager(
	configs repository.GatewayConfigRepository,
	client *GatewayClient,
	logger *zap.Logger,
) (*InstanceManager, error) {
	if configs == nil {
		return nil, fmt.Errorf("gateway config repository is required")
	}
	if client == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &InstanceManager{
		configs: configs,
		client:  client,
		logger:  logger,
		now:     time.Now,
		cache:   make(map[string]cachedStatus),
	}, nil
}

// Resolve returns ready-to-use credentials for the organization, running a
// connection test when no recent verdict exists. Missing or incomplete
// credentials fail closed with ErrGatewayNotConfigured.
func (m *InstanceManager) Resolve(ctx context.Context, organizationID string) (*domain.GatewayConfig, error) {
	cfg, err := m.configs.GetByOrganization(ctx, organizationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrGatewayNotConfigured
	}
	if err != nil {
		return nil, err
	}
	if !cfg.Complete() {
		return nil, ErrGatewayNotConfigured
	}

	if status, ok := m.cachedVerdict(organizationID); ok {
		if status != domain.GatewayStatusActive {
			return nil, fmt.Errorf("%w: gateway instance is %s", ErrGatewayNotConfigured, status)
		}
		return cfg, nil
	}

	status := m.checkConnection(ctx, cfg)
	m.storeVerdict(ctx, organizationID, status)

	if status != domain.GatewayStatusActive {
		return nil, fmt.Errorf("%w: gateway instance is %s", ErrGatewayNotConfigured, status)
	}
	return cfg, nil
}

func (m *InstanceManager) cachedVerdict(organizationID string) (domain.GatewayStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cached, ok := m.cache[organizationID]
	if !ok || m.now().Sub(cached.checkedAt) > statusCacheTTL {
		return "", false
	}
	return cached.status, true
}

func (m *InstanceManager) checkConnection(ctx context.Context, cfg *domain.GatewayConfig) domain.GatewayStatus {
	_, err := m.client.SendText(ctx, cfg.InstanceID, cfg.Token, testRecipient, "connection test")
	if ProvesConnectivity(err) {
		return domain.GatewayStatusActive
	}

	m.logger.Warn("gateway connection test failed",
		zap.String("organizationId", cfg.OrganizationID),
		zap.Error(err),
	)

	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) && gatewayErr.StatusCode > 0 {
		return domain.GatewayStatusInactive
	}
	return domain.GatewayStatusError
}

func (m *InstanceManager) storeVerdict(ctx context.Context, organizationID string, status domain.GatewayStatus) {
	m.mu.Lock()
	m.cache[organizationID] = cachedStatus{status: status, checkedAt: m.now()}
	m.mu.Unlock()

	if err := m.configs.UpdateStatus(ctx, organizationID, status); err != nil {
		m.logger.Warn("failed to persist gateway status",
			zap.String("organizationId", organizationID),
			zap.String("status", status.String()),
			zap.Error(err),
		)
	}
}
