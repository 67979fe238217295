package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/cache"
)

func TestSettingsService_LoadFallsBackToSeed(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(nil, integration.ErrSettingsNotFound)
	seed := enabledSettings()

	svc := NewSettingsService(repo, nil, seed, 0, zaptest.NewLogger(t))
	got, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seed.APIKey, got.APIKey)
	assert.True(t, got.Enabled)
}

func TestSettingsService_LoadUsesCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingsRepository)
	stored := enabledSettings()
	repo.On("Load", mock.Anything).Return(&stored, nil).Once()

	svc := NewSettingsService(repo, cache.NewInMemorySettingsCache(), integration.DefaultSettings(), time.Minute, zaptest.NewLogger(t))
	for i := 0; i < 3; i++ {
		got, err := svc.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "key-123", got.APIKey)
	}
	repo.AssertNumberOfCalls(t, "Load", 1)
}

func TestSettingsService_LoadError(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(nil, errors.New("db down"))

	svc := NewSettingsService(repo, nil, integration.DefaultSettings(), 0, nil)
	_, err := svc.Load(context.Background())
	assert.Error(t, err)
}

func TestSettingsService_UpdateKeepsRedactedSecrets(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSettingsRepository)
	stored := enabledSettings()
	stored.WebhookSecret = testWebhookSecret
	checked := time.Now().Add(-time.Hour)
	stored.LastHealthCheckAt = &checked
	stored.LastHealthStatus = HealthStatusHealthy
	repo.On("Load", mock.Anything).Return(&stored, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(s *integration.Settings) bool {
		return s.APIKey == "key-123" && s.WebhookSecret == testWebhookSecret && s.LastHealthStatus == HealthStatusHealthy
	})).Return(nil).Once()

	c := cache.NewInMemorySettingsCache()
	svc := NewSettingsService(repo, c, integration.DefaultSettings(), time.Minute, zaptest.NewLogger(t))
	_, err := svc.Load(ctx)
	require.NoError(t, err)

	next := stored.Redacted()
	next.TestMode = true
	next.LastHealthStatus = ""
	updated, err := svc.Update(ctx, next)
	require.NoError(t, err)
	assert.True(t, updated.TestMode)
	assert.Equal(t, "key-123", updated.APIKey)

	_, cached := c.Get(ctx)
	assert.False(t, cached, "update must invalidate the cache")
	repo.AssertExpectations(t)
}

func TestSettingsService_UpdateRejectsInvalid(t *testing.T) {
	repo := new(MockSettingsRepository)
	stored := integration.DefaultSettings()
	repo.On("Load", mock.Anything).Return(&stored, nil)

	svc := NewSettingsService(repo, nil, integration.DefaultSettings(), 0, zaptest.NewLogger(t))

	next := integration.DefaultSettings()
	next.Enabled = true // no credentials
	_, err := svc.Update(context.Background(), next)
	assert.ErrorIs(t, err, integration.ErrInvalidSettings)

	next = integration.DefaultSettings()
	next.WebhookSecret = "short"
	_, err = svc.Update(context.Background(), next)
	assert.ErrorIs(t, err, integration.ErrInvalidSettings)

	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSettingsService_EnsureSeeded(t *testing.T) {
	repo := new(MockSettingsRepository)
	repo.On("Load", mock.Anything).Return(nil, integration.ErrSettingsNotFound)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewSettingsService(repo, nil, enabledSettings(), 0, zaptest.NewLogger(t))
	require.NoError(t, svc.EnsureSeeded(context.Background()))
	repo.AssertExpectations(t)
}
