// Package telemetry wires OpenTelemetry tracing, metrics and logs, plus
// Pyroscope continuous profiling, for the sync service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/infrastructure/config"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// shutdownTimeout bounds every provider flush on exit
const shutdownTimeout = 10 * time.Second

// Config holds the settings shared by all telemetry providers
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	Insecure          bool

	MetricsEnabled  bool
	MetricsInterval time.Duration
	LogsEnabled     bool
	DBTraceEnabled  bool

	ProfilingEnabled  bool
	ProfilingEndpoint string
}

// ConfigFrom maps the application telemetry section onto Config
func ConfigFrom(cfg config.TelemetryConfig, version string) Config {
	return Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Insecure,
		MetricsEnabled:    cfg.MetricsEnabled,
		MetricsInterval:   cfg.MetricsInterval,
		LogsEnabled:       cfg.LogsEnabled,
		DBTraceEnabled:    cfg.DBTraceEnabled,
		ProfilingEnabled:  cfg.ProfilingEnabled,
		ProfilingEndpoint: cfg.ProfilingEndpoint,
	}
}

func (c Config) metricsOn() bool { return c.Enabled && c.MetricsEnabled }
func (c Config) logsOn() bool    { return c.Enabled && c.LogsEnabled }

func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Telemetry bundle
// ---------------------------------------------------------------------------

// Telemetry owns every provider started for the process
type Telemetry struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler

	config Config
}

// Setup starts the profiler, tracer, meter and log providers in that order.
// Disabled providers are returned as no-ops so callers never check for nil.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Telemetry, error) {
	t := &Telemetry{config: cfg}

	profiler, err := NewProfiler(ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.ProfilingEndpoint,
		ApplicationName: cfg.ServiceName,
	}, logger)
	if err != nil {
		return nil, err
	}
	t.Profiler = profiler

	if t.Tracer, err = NewTracerProvider(ctx, cfg, logger); err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	if profiler.IsEnabled() {
		if err := t.Tracer.EnableSpanProfiles(); err != nil {
			logger.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	if t.Meter, err = NewMeterProvider(ctx, cfg, logger); err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	if t.Logs, err = NewLoggerProvider(ctx, cfg, logger); err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	return t, nil
}

// Bridge returns logger teed into the OTEL log pipeline when logs are on
func (t *Telemetry) Bridge(logger *zap.Logger) *zap.Logger {
	if t.Logs == nil || !t.Logs.IsEnabled() {
		return logger
	}
	return BridgeLogger(logger, NewZapOTELCore(t.config.ServiceName, t.Logs, logger.Level()))
}

// Shutdown flushes providers in reverse start order and joins their errors
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Logs != nil {
		errs = append(errs, t.Logs.Shutdown(ctx))
	}
	if t.Meter != nil {
		errs = append(errs, t.Meter.Shutdown(ctx))
	}
	if t.Tracer != nil {
		errs = append(errs, t.Tracer.Shutdown(ctx))
	}
	if t.Profiler != nil {
		errs = append(errs, t.Profiler.Stop())
	}
	return errors.Join(errs...)
}
