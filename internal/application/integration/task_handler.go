package integration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
)

// ErrUnknownTaskType is returned for tasks no service handles
var ErrUnknownTaskType = errors.New("integration: unknown task type")

// TaskHandler runs queued units of work against the services. Sync failures
// are recorded by the services themselves; only infrastructure errors are
// returned so the queue can retry the task.
type TaskHandler struct {
	sync        *SyncService
	maintenance *MaintenanceService
	logger      *zap.Logger
}

var _ integration.TaskHandler = (*TaskHandler)(nil)

// NewTaskHandler creates a task handler
func NewTaskHandler(sync *SyncService, maintenance *MaintenanceService, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{sync: sync, maintenance: maintenance, logger: logger.Named("tasks")}
}

// HandleTask executes one task
func (h *TaskHandler) HandleTask(ctx context.Context, task *integration.SyncTask) error {
	if task == nil {
		return nil
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "TaskHandler", "HandleTask",
		telemetry.WithAttribute(telemetry.SpanAttrTaskType, task.Type.String()),
		telemetry.WithAttribute(telemetry.SpanAttrAttempt, task.Attempt),
	)
	defer span.End()
	ctx, log := logger.WithTask(ctx, h.logger, task.ID, task.LocalID)

	var err error
	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelTaskType: task.Type.String(),
	}, func(ctx context.Context) {
		err = h.run(ctx, task)
	})
	switch {
	case err == nil:
		telemetry.SetOK(span)
		return nil
	case errors.Is(err, integration.ErrSyncInProgress):
		// Another worker holds the entity and records the outcome
		log.Debug("Task dropped, entity sync in progress", zap.String("type", task.Type.String()))
		return nil
	case errors.Is(err, integration.ErrLocalEntityNotFound), errors.Is(err, integration.ErrInvalidLocalID):
		log.Info("Task dropped, local entity not found", zap.String("type", task.Type.String()))
		return nil
	default:
		telemetry.RecordError(span, err)
		log.Warn("Task failed", zap.String("type", task.Type.String()), zap.Error(err))
		return err
	}
}

func (h *TaskHandler) run(ctx context.Context, task *integration.SyncTask) error {
	trigger := task.Trigger
	if !trigger.IsValid() {
		trigger = integration.TriggerAuto
	}

	var err error
	switch task.Type {
	case integration.TaskSyncProduct:
		_, err = h.sync.SyncEntity(ctx, task.LocalID, trigger)
	case integration.TaskSyncInventory:
		_, err = h.sync.SyncInventory(ctx, task.LocalID, trigger)
	case integration.TaskSyncCategory:
		_, err = h.sync.SyncCategory(ctx, task.LocalID, trigger)
	case integration.TaskDeleteProduct:
		_, err = h.sync.DeleteEntity(ctx, task.LocalID, trigger)
	case integration.TaskBulkSync:
		_, err = h.sync.BulkSync(ctx, task.LocalIDs)
	case integration.TaskRetrySweep:
		_, err = h.sync.RetryFailed(ctx, task.Limit)
	case integration.TaskSyncPending:
		_, err = h.sync.SyncPending(ctx, task.Limit)
	case integration.TaskInventorySweep:
		_, err = h.sync.InventorySweep(ctx, task.Limit)
	case integration.TaskResetStale:
		_, err = h.sync.ResetStalePending(ctx, task.OlderThan)
	case integration.TaskPurgeAudit:
		_, err = h.maintenance.PurgeAudit(ctx)
	case integration.TaskHealthCheck:
		_, err = h.maintenance.HealthCheck(ctx)
	case integration.TaskDailyReport:
		_, err = h.maintenance.DailyReport(ctx)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
	}
	return err
}
