package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/queue"
)

// Sync outcomes reported by RecordSync
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// MappingStatusCounter reports mapping counts per status, used for the
// mapping gauge. The entity mapping repository satisfies it.
type MappingStatusCounter interface {
	CountByStatus(ctx context.Context, kind integration.EntityKind) (map[integration.SyncStatus]int64, error)
}

// SyncMetrics records sync attempts, webhook deliveries and queued task
// executions. It implements queue.Observer.
type SyncMetrics struct {
	logger *zap.Logger

	syncTotal    *Counter
	syncDuration *Histogram
	webhookTotal *Counter
	taskTotal    *Counter
	taskDuration *Histogram

	mappings     metric.Int64ObservableGauge
	registration metric.Registration
}

var _ queue.Observer = (*SyncMetrics)(nil)

// NewSyncMetrics creates the instrument set on meter. When counter is not
// nil a gauge reports mapping counts by kind and status on every collection.
func NewSyncMetrics(meter metric.Meter, counter MappingStatusCounter, logger *zap.Logger) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SyncMetrics{logger: logger}

	var err error
	if m.syncTotal, err = NewCounter(meter, "storesync_sync_operations_total",
		"Outbound sync attempts by entity kind, operation and outcome", "{operations}"); err != nil {
		return nil, err
	}
	if m.syncDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "storesync_sync_duration_seconds",
		Description: "Duration of one outbound sync including the remote call",
		Unit:        "s",
		Boundaries:  RemoteCallBuckets,
	}); err != nil {
		return nil, err
	}
	if m.webhookTotal, err = NewCounter(meter, "storesync_webhook_events_total",
		"Inbound webhook deliveries by event type and outcome", "{events}"); err != nil {
		return nil, err
	}
	if m.taskTotal, err = NewCounter(meter, "storesync_tasks_total",
		"Queued task executions by type and status", "{tasks}"); err != nil {
		return nil, err
	}
	if m.taskDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "storesync_task_duration_seconds",
		Description: "Duration of queued task executions",
		Unit:        "s",
		Boundaries:  TaskDurationBuckets,
	}); err != nil {
		return nil, err
	}

	if counter != nil {
		m.mappings, err = meter.Int64ObservableGauge("storesync_entity_mappings",
			metric.WithDescription("Entity mappings by kind and sync status"),
			metric.WithUnit("{mappings}"),
		)
		if err != nil {
			return nil, err
		}
		m.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			return m.observeMappings(ctx, o, counter)
		}, m.mappings)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *SyncMetrics) observeMappings(ctx context.Context, o metric.Observer, counter MappingStatusCounter) error {
	for _, kind := range []integration.EntityKind{integration.EntityKindProduct, integration.EntityKindCategory, integration.EntityKindOrder} {
		counts, err := counter.CountByStatus(ctx, kind)
		if err != nil {
			// A failed query must not abort the whole collection
			m.logger.Warn("Failed to count mappings", zap.String("kind", string(kind)), zap.Error(err))
			continue
		}
		for status, n := range counts {
			o.ObserveInt64(m.mappings, n, metric.WithAttributes(
				AttrEntityKind.String(string(kind)),
				AttrSyncStatus.String(string(status)),
			))
		}
	}
	return nil
}

// RecordSync counts one outbound sync attempt
func (m *SyncMetrics) RecordSync(ctx context.Context, kind integration.EntityKind, operation string, trigger integration.TriggerType, outcome string, failure integration.FailureType, d time.Duration) {
	attrs := []attribute.KeyValue{
		AttrEntityKind.String(string(kind)),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
		AttrTrigger.String(string(trigger)),
	}
	if failure != "" {
		attrs = append(attrs, AttrFailure.String(string(failure)))
	}
	m.syncTotal.Inc(ctx, attrs...)
	if d > 0 {
		m.syncDuration.RecordDuration(ctx, d, attrs[:2]...)
	}
}

// RecordWebhook counts one inbound delivery
func (m *SyncMetrics) RecordWebhook(ctx context.Context, eventType integration.WebhookEventType, outcome string) {
	m.webhookTotal.Inc(ctx, AttrEventType.String(string(eventType)), AttrOutcome.String(outcome))
}

// ObserveTask records a finished queued task execution
func (m *SyncMetrics) ObserveTask(ctx context.Context, r queue.TaskRecord) {
	attrs := []attribute.KeyValue{
		AttrTaskType.String(string(r.Type)),
		AttrTaskStatus.String(string(r.Status)),
	}
	m.taskTotal.Inc(ctx, attrs...)
	if d := r.Duration(); d > 0 {
		m.taskDuration.RecordDuration(ctx, d, attrs[0])
	}
}

// Close unregisters the mapping gauge callback
func (m *SyncMetrics) Close() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
