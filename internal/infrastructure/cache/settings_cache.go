package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/redis/go-redis/v9"
)

const settingsKey = "storesync:settings"

// InMemorySettingsCache keeps the settings in process memory
type InMemorySettingsCache struct {
	mu        sync.RWMutex
	settings  *integration.Settings
	expiresAt time.Time
	now       func() time.Time
}

// NewInMemorySettingsCache creates an empty cache
func NewInMemorySettingsCache() *InMemorySettingsCache {
	return &InMemorySettingsCache{now: time.Now}
}

// Get returns a copy of the cached settings while they are fresh
func (c *InMemorySettingsCache) Get(_ context.Context) (*integration.Settings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.settings == nil || !c.now().Before(c.expiresAt) {
		return nil, false
	}
	cp := *c.settings
	return &cp, true
}

// Set stores a copy of settings for ttl
func (c *InMemorySettingsCache) Set(_ context.Context, settings *integration.Settings, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *settings
	c.settings = &cp
	c.expiresAt = c.now().Add(ttl)
	return nil
}

// Invalidate drops the cached settings
func (c *InMemorySettingsCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = nil
	return nil
}

var _ integration.SettingsCache = (*InMemorySettingsCache)(nil)

// RedisSettingsCache shares the settings between instances. Saving settings
// on one instance invalidates the key for all of them.
type RedisSettingsCache struct {
	client *redis.Client
	key    string
}

// NewRedisSettingsCache creates a cache on an existing client
func NewRedisSettingsCache(client *redis.Client) *RedisSettingsCache {
	return &RedisSettingsCache{client: client, key: settingsKey}
}

// Get returns the cached settings. Any Redis failure is a miss.
func (c *RedisSettingsCache) Get(ctx context.Context) (*integration.Settings, bool) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		return nil, false
	}
	var s integration.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Set stores the settings for ttl
func (c *RedisSettingsCache) Set(ctx context.Context, settings *integration.Settings, ttl time.Duration) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache settings: %w", err)
	}
	return nil
}

// Invalidate deletes the cached settings
func (c *RedisSettingsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to invalidate settings: %w", err)
	}
	return nil
}

var _ integration.SettingsCache = (*RedisSettingsCache)(nil)
