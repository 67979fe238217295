package cache

import (
	"context"
	"fmt"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores groups the caches the sync service needs
type Stores struct {
	Settings integration.SettingsCache
	Dedup    integration.EventDeduplicator
	client   *redis.Client
	inMemory *InMemoryIdempotencyStore
}

// Close releases the Redis client or stops the in-memory sweeper
func (s *Stores) Close() error {
	if s.inMemory != nil {
		_ = s.inMemory.Close()
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Backend names the active backend, for logs and health output
func (s *Stores) Backend() string {
	if s.client != nil {
		return "redis"
	}
	return "memory"
}

// Client returns the Redis client, nil for in-memory stores
func (s *Stores) Client() *redis.Client {
	return s.client
}

// Ping checks the Redis connection. In-memory stores are always ready.
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Factory creates cache stores based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when
// Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// InMemory creates process-local stores
func (f *Factory) InMemory() *Stores {
	dedup := NewInMemoryIdempotencyStore()
	return &Stores{
		Settings: NewInMemorySettingsCache(),
		Dedup:    dedup,
		inMemory: dedup,
	}
}

// Create returns Redis-backed stores when Redis is enabled and reachable,
// otherwise in-memory stores if fallback is allowed
func (f *Factory) Create() (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory caches")
		return f.InMemory(), nil
	}

	client, err := NewRedisClient(f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis caches", zap.String("addr", f.redisConfig.Addr()))
		return &Stores{
			Settings: NewRedisSettingsCache(client),
			Dedup:    NewRedisIdempotencyStore(client, ""),
			client:   client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory caches. "+
		"Webhook deduplication will not be shared between instances.",
		zap.Error(err),
	)
	return f.InMemory(), nil
}
