package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/queue"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
)

type stubStatusCounter struct {
	counts map[integration.EntityKind]map[integration.SyncStatus]int64
	err    error
}

func (s *stubStatusCounter) CountByStatus(_ context.Context, kind integration.EntityKind) (map[integration.SyncStatus]int64, error) {
	if s.err != nil && kind == integration.EntityKindOrder {
		return nil, s.err
	}
	return s.counts[kind], nil
}

func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumWhere(t *testing.T, m metricdata.Metrics, key attribute.Key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(key); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewSyncMetrics(nil, nil, zap.NewNop())
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestNewSyncMetrics_NoopMeter(t *testing.T) {
	m, err := telemetry.NewSyncMetrics(noop.NewMeterProvider().Meter("test"), &stubStatusCounter{}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSync(ctx, integration.EntityKindProduct, "create", integration.TriggerManual, telemetry.OutcomeSuccess, integration.FailureNone, time.Second)
	m.RecordWebhook(ctx, integration.EventOrderCreated, telemetry.OutcomeSuccess)
	m.ObserveTask(ctx, queue.TaskRecord{Type: integration.TaskSyncProduct, Status: queue.TaskStatusSuccess})
	assert.NoError(t, m.Close())
}

func TestSyncMetrics_RecordSync(t *testing.T) {
	reader, mp := newManualMeter(t)
	m, err := telemetry.NewSyncMetrics(mp.Meter("test"), nil, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSync(ctx, integration.EntityKindProduct, "create", integration.TriggerAuto, telemetry.OutcomeSuccess, integration.FailureNone, 120*time.Millisecond)
	m.RecordSync(ctx, integration.EntityKindProduct, "update", integration.TriggerRetry, telemetry.OutcomeFailure, integration.FailureTimeout, 30*time.Second)
	m.RecordSync(ctx, integration.EntityKindProduct, "update", integration.TriggerAuto, telemetry.OutcomeSkipped, integration.FailureNone, 0)

	metrics := collect(t, reader)
	total := metrics["storesync_sync_operations_total"]
	assert.Equal(t, int64(1), sumWhere(t, total, telemetry.AttrOutcome, telemetry.OutcomeSuccess))
	assert.Equal(t, int64(1), sumWhere(t, total, telemetry.AttrOutcome, telemetry.OutcomeFailure))
	assert.Equal(t, int64(1), sumWhere(t, total, telemetry.AttrFailure, string(integration.FailureTimeout)))
	assert.Equal(t, int64(2), sumWhere(t, total, telemetry.AttrOperation, "update"))

	hist, ok := metrics["storesync_sync_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count, "skipped attempts carry no duration")
}

func TestSyncMetrics_WebhookAndTasks(t *testing.T) {
	reader, mp := newManualMeter(t)
	m, err := telemetry.NewSyncMetrics(mp.Meter("test"), nil, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordWebhook(ctx, integration.EventOrderPaid, telemetry.OutcomeSuccess)
	m.RecordWebhook(ctx, integration.EventOrderPaid, telemetry.OutcomeSkipped)
	m.RecordWebhook(ctx, integration.EventProductDeleted, telemetry.OutcomeFailure)

	start := time.Now()
	var _ queue.Observer = m
	m.ObserveTask(ctx, queue.TaskRecord{Type: integration.TaskSyncProduct, Status: queue.TaskStatusSuccess, StartedAt: start, CompletedAt: start.Add(2 * time.Second)})
	m.ObserveTask(ctx, queue.TaskRecord{Type: integration.TaskSyncProduct, Status: queue.TaskStatusRetrying, StartedAt: start, CompletedAt: start.Add(time.Second)})
	m.ObserveTask(ctx, queue.TaskRecord{Type: integration.TaskPurgeAudit, Status: queue.TaskStatusFailed})

	metrics := collect(t, reader)
	webhooks := metrics["storesync_webhook_events_total"]
	assert.Equal(t, int64(2), sumWhere(t, webhooks, telemetry.AttrEventType, string(integration.EventOrderPaid)))
	assert.Equal(t, int64(1), sumWhere(t, webhooks, telemetry.AttrOutcome, telemetry.OutcomeFailure))

	tasks := metrics["storesync_tasks_total"]
	assert.Equal(t, int64(2), sumWhere(t, tasks, telemetry.AttrTaskType, string(integration.TaskSyncProduct)))
	assert.Equal(t, int64(1), sumWhere(t, tasks, telemetry.AttrTaskStatus, string(queue.TaskStatusRetrying)))
}

func TestSyncMetrics_MappingGauge(t *testing.T) {
	reader, mp := newManualMeter(t)
	counter := &stubStatusCounter{
		counts: map[integration.EntityKind]map[integration.SyncStatus]int64{
			integration.EntityKindProduct: {
				integration.SyncStatusSynced: 40,
				integration.SyncStatusError:  3,
			},
			integration.EntityKindCategory: {
				integration.SyncStatusSynced: 5,
			},
		},
		err: errors.New("db down"),
	}
	m, err := telemetry.NewSyncMetrics(mp.Meter("test"), counter, zap.NewNop())
	require.NoError(t, err)

	metrics := collect(t, reader)
	gauge, ok := metrics["storesync_entity_mappings"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 3, "a failing kind is skipped")

	got := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		kind, _ := dp.Attributes.Value(telemetry.AttrEntityKind)
		status, _ := dp.Attributes.Value(telemetry.AttrSyncStatus)
		got[kind.AsString()+"/"+status.AsString()] = dp.Value
	}
	assert.Equal(t, int64(40), got["PRODUCT/SYNCED"])
	assert.Equal(t, int64(3), got["PRODUCT/ERROR"])
	assert.Equal(t, int64(5), got["CATEGORY/SYNCED"])

	require.NoError(t, m.Close())
	metrics = collect(t, reader)
	if after, ok := metrics["storesync_entity_mappings"]; ok {
		g, _ := after.Data.(metricdata.Gauge[int64])
		assert.Empty(t, g.DataPoints)
	}
}
