package telemetry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
)

func disabledConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "storesync-test",
		MetricsEnabled:    true,
		LogsEnabled:       true,
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := telemetry.ConfigFrom(config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.25,
		ServiceName:       "storesync",
		MetricsEnabled:    true,
		MetricsInterval:   15 * time.Second,
		DBTraceEnabled:    true,
		ProfilingEndpoint: "http://pyroscope:4040",
	}, "1.4.0")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "otel:4317", cfg.CollectorEndpoint)
	assert.Equal(t, 0.25, cfg.SamplingRatio)
	assert.Equal(t, "1.4.0", cfg.ServiceVersion)
	assert.Equal(t, 15*time.Second, cfg.MetricsInterval)
	assert.True(t, cfg.DBTraceEnabled)
	assert.False(t, cfg.ProfilingEnabled)
}

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, disabledConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tel.Tracer.IsEnabled())
	assert.False(t, tel.Meter.IsEnabled())
	assert.False(t, tel.Logs.IsEnabled())
	assert.False(t, tel.Profiler.IsEnabled())
	assert.False(t, tel.Tracer.IsSpanProfilesEnabled())

	// Trace context still crosses process boundaries
	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

	base := zap.NewNop()
	assert.Same(t, base, tel.Bridge(base))

	assert.NoError(t, tel.Tracer.ForceFlush(ctx))
	assert.NoError(t, tel.Meter.ForceFlush(ctx))
	assert.NoError(t, tel.Logs.ForceFlush(ctx))
	assert.NoError(t, tel.Shutdown(ctx))
}

func TestTracerProvider_DisabledFallsBackToGlobal(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), disabledConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, tp.Tracer("test"))
	assert.Equal(t, "storesync-test", tp.GetConfig().ServiceName)
	assert.NoError(t, tp.EnableSpanProfiles())
	assert.False(t, tp.IsSpanProfilesEnabled())
}

func TestMeterProvider_MetricsOffWhenTelemetryOff(t *testing.T) {
	cfg := disabledConfig()
	cfg.MetricsEnabled = true

	mp, err := telemetry.NewMeterProvider(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewZapOTELCore_Disabled(t *testing.T) {
	assert.False(t, telemetry.NewZapOTELCore("svc", nil, zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))

	lp, err := telemetry.NewLoggerProvider(context.Background(), disabledConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, telemetry.NewZapOTELCore("svc", lp, zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestBridgeLogger(t *testing.T) {
	baseCore, baseLogs := observer.New(zapcore.InfoLevel)
	teeCore, teeLogs := observer.New(zapcore.WarnLevel)

	logger := telemetry.BridgeLogger(zap.New(baseCore), teeCore)
	logger.Info("mapping synced", zap.String("local_id", "SKU-001"))
	logger.Warn("retry scheduled")
	logger.Debug("dropped")

	require.Equal(t, 2, baseLogs.Len())
	assert.Equal(t, "mapping synced", baseLogs.All()[0].Message)
	require.Equal(t, 1, teeLogs.Len())
	assert.Equal(t, "retry scheduled", teeLogs.All()[0].Message)
}

func TestNewProfiler(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("disabled is a no-op", func(t *testing.T) {
		p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{ServerAddress: "http://localhost:4040"}, logger)
		require.NoError(t, err)
		assert.False(t, p.IsEnabled())
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})

	t.Run("missing server address", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: true, ApplicationName: "storesync"}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server address")
	})

	t.Run("missing application name", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "application name")
	})

	t.Run("concurrent stop", func(t *testing.T) {
		p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, logger)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, p.Stop())
			}()
		}
		wg.Wait()
	})
}

func TestSetup_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("requires an OTEL collector on localhost:14317")
	}
	cfg := disabledConfig()
	cfg.Enabled = true
	cfg.Insecure = true

	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(ctx) }()

	assert.True(t, tel.Tracer.IsEnabled())
	assert.True(t, tel.Meter.IsEnabled())
	assert.True(t, tel.Logs.IsEnabled())
}
