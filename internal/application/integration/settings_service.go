package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
)

// redactedSecret is what Settings.Redacted puts in place of a secret.
// Sending it back on update keeps the stored value.
const redactedSecret = "********"

// SettingsService loads the integration settings once per unit of work
// through a TTL cache and stores operator changes.
type SettingsService struct {
	repo   integration.SettingsRepository
	cache  integration.SettingsCache
	seed   integration.Settings
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSettingsService creates a settings service. seed is used until
// settings have been stored. cache may be nil.
func NewSettingsService(repo integration.SettingsRepository, cache integration.SettingsCache, seed integration.Settings, ttl time.Duration, logger *zap.Logger) *SettingsService {
	if ttl <= 0 {
		ttl = integration.DefaultSettingsCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		repo:   repo,
		cache:  cache,
		seed:   seed,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the current settings
func (s *SettingsService) Load(ctx context.Context) (integration.Settings, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx); ok {
			return *cached, nil
		}
	}

	stored, err := s.loadStored(ctx)
	if err != nil {
		return integration.Settings{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, stored, s.ttl); err != nil {
			s.logger.Warn("Failed to cache integration settings", zap.Error(err))
		}
	}
	return *stored, nil
}

func (s *SettingsService) loadStored(ctx context.Context) (*integration.Settings, error) {
	stored, err := s.repo.Load(ctx)
	if errors.Is(err, integration.ErrSettingsNotFound) {
		seed := s.seed
		return &seed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load integration settings: %w", err)
	}
	return stored, nil
}

// EnsureSeeded stores the seed settings when nothing has been stored yet
func (s *SettingsService) EnsureSeeded(ctx context.Context) error {
	_, err := s.repo.Load(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, integration.ErrSettingsNotFound) {
		return fmt.Errorf("failed to load integration settings: %w", err)
	}
	seed := s.seed
	seed.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, &seed); err != nil {
		return fmt.Errorf("failed to seed integration settings: %w", err)
	}
	s.logger.Info("Integration settings seeded from configuration", zap.Bool("enabled", seed.Enabled))
	return nil
}

// Update validates and stores new settings. Redacted secrets keep their
// stored values. The cache is invalidated so the next unit of work sees the
// change.
func (s *SettingsService) Update(ctx context.Context, next integration.Settings) (integration.Settings, error) {
	current, err := s.loadStored(ctx)
	if err != nil {
		return integration.Settings{}, err
	}
	if next.APIKey == redactedSecret {
		next.APIKey = current.APIKey
	}
	if next.WebhookSecret == redactedSecret {
		next.WebhookSecret = current.WebhookSecret
	}
	next.LastHealthCheckAt = current.LastHealthCheckAt
	next.LastHealthStatus = current.LastHealthStatus
	next.LastHealthMessage = current.LastHealthMessage

	if err := next.Validate(); err != nil {
		return integration.Settings{}, err
	}
	next.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, &next); err != nil {
		return integration.Settings{}, fmt.Errorf("failed to save integration settings: %w", err)
	}
	s.invalidate(ctx)

	s.logger.Info("Integration settings updated",
		zap.Bool("enabled", next.Enabled),
		zap.Bool("test_mode", next.TestMode),
		zap.Bool("auto_sync_items", next.AutoSyncItems),
	)
	return next, nil
}

// RecordHealth stores the result of a health check in the settings record
func (s *SettingsService) RecordHealth(ctx context.Context, h HealthResult) error {
	current, err := s.loadStored(ctx)
	if err != nil {
		return err
	}
	at := h.CheckedAt
	current.LastHealthCheckAt = &at
	current.LastHealthStatus = h.Status
	current.LastHealthMessage = integration.Truncate(h.Message, integration.MaxAuditMessageLength)
	if err := s.repo.Save(ctx, current); err != nil {
		return fmt.Errorf("failed to save health status: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate cached integration settings", zap.Error(err))
	}
}
