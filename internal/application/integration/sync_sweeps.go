package integration

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
)

// Sweep defaults
const (
	DefaultRetryBatch     = 10
	DefaultPendingBatch   = 20
	DefaultInventoryBatch = 100
	DefaultStaleAfter     = 24 * time.Hour
	staleResetBatch       = 100
)

// RetryFailed re-attempts failed products and categories whose retry time
// has passed. Exhausted mappings are never picked up.
func (s *SyncService) RetryFailed(ctx context.Context, limit int) (SweepResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "RetryFailed")
	defer span.End()
	if limit <= 0 {
		limit = DefaultRetryBatch
	}

	var result SweepResult
	settings, err := s.settings.Load(ctx)
	if err != nil || !settings.Enabled {
		return result, err
	}

	for _, kind := range []integration.EntityKind{integration.EntityKindProduct, integration.EntityKindCategory} {
		due, err := s.mappings.RetryDue(ctx, kind, limit)
		if err != nil {
			telemetry.RecordError(span, err)
			return result, err
		}
		for _, m := range due {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			var res *SyncResult
			if kind == integration.EntityKindCategory {
				res, err = s.SyncCategory(ctx, m.LocalID, integration.TriggerRetry)
			} else {
				res, err = s.SyncEntity(ctx, m.LocalID, integration.TriggerRetry)
			}
			if errors.Is(err, integration.ErrLocalEntityNotFound) {
				// The local entity is gone; stop retrying it
				now := s.now()
				if _, err := s.mappings.Update(ctx, &m, func(m *integration.EntityMapping) bool {
					m.Disable(now)
					return true
				}); err != nil {
					logger.Using(ctx, s.logger).Warn("Failed to disable mapping of missing entity",
						zap.String("local_id", m.LocalID),
						zap.Error(err),
					)
				}
			}
			s.sweepItem(ctx, &result, m.LocalID, res, err)
		}
	}

	telemetry.SetAttributes(span, "sweep.processed", result.Processed, "sweep.failed", result.Failed)
	if result.Processed > 0 {
		logger.Using(ctx, s.logger).Info("Retry sweep finished",
			zap.Int("processed", result.Processed),
			zap.Int("success", result.Success),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

// SyncPending syncs enabled sellable items that have never been created on
// the storefront, in small batches
func (s *SyncService) SyncPending(ctx context.Context, limit int) (SweepResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "SyncPending")
	defer span.End()
	if limit <= 0 {
		limit = DefaultPendingBatch
	}

	var result SweepResult
	settings, err := s.settings.Load(ctx)
	if err != nil || !settings.Enabled || !settings.AutoSyncItems {
		return result, err
	}

	items, err := s.catalog.FindUnsynced(ctx, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return result, err
	}
	for _, item := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		res, err := s.SyncEntity(ctx, item.Code, integration.TriggerScheduled)
		s.sweepItem(ctx, &result, item.Code, res, err)
	}

	if result.Processed > 0 {
		logger.Using(ctx, s.logger).Info("Pending sync finished",
			zap.Int("processed", result.Processed),
			zap.Int("success", result.Success),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
		)
	}
	return result, nil
}

// InventorySweep pushes stock levels of synced products
func (s *SyncService) InventorySweep(ctx context.Context, limit int) (SweepResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "InventorySweep")
	defer span.End()
	if limit <= 0 {
		limit = DefaultInventoryBatch
	}

	var result SweepResult
	settings, err := s.settings.Load(ctx)
	if err != nil || !settings.Enabled || !settings.SyncInventory {
		return result, err
	}

	synced, err := s.mappings.Synced(ctx, integration.EntityKindProduct, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return result, err
	}
	for _, m := range synced {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		res, err := s.SyncInventory(ctx, m.LocalID, integration.TriggerScheduled)
		s.sweepItem(ctx, &result, m.LocalID, res, err)
	}

	if result.Processed > 0 {
		logger.Using(ctx, s.logger).Info("Inventory sweep finished",
			zap.Int("processed", result.Processed),
			zap.Int("success", result.Success),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped),
		)
	}
	return result, nil
}

// ResetStalePending returns mappings stuck in Pending for longer than
// olderThan to NotSynced, so a crashed unit of work does not block the
// entity forever
func (s *SyncService) ResetStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		olderThan = DefaultStaleAfter
	}
	now := s.now()
	stale, err := s.mappings.StalePending(ctx, now.Add(-olderThan), staleResetBatch)
	if err != nil {
		return 0, err
	}

	reset := 0
	for i := range stale {
		m := &stale[i]
		m.Reset(now)
		if err := s.mappings.Save(ctx, m); err != nil {
			if errors.Is(err, integration.ErrMappingConflict) {
				// finished or reclaimed since it was listed
				logger.Using(ctx, s.logger).Debug("Stale mapping moved on before reset",
					zap.String("local_id", m.LocalID),
				)
				continue
			}
			logger.Using(ctx, s.logger).Warn("Failed to reset stale mapping",
				zap.String("local_id", m.LocalID),
				zap.Error(err),
			)
			continue
		}
		if m.Kind == integration.EntityKindProduct {
			s.writeSyncFields(ctx, m.LocalID, m.RemoteID, integration.SyncStatusNotSynced, m.LastSyncAt)
		}
		reset++
	}

	if reset > 0 {
		s.audit.Record(ctx, integration.NewAuditLogEntry(integration.OperationMaintenance, integration.EntityKindProduct, "stale_pending", integration.AuditStatusSuccess).
			WithTrigger(integration.TriggerScheduled).
			WithMessage("Reset stuck pending mappings").
			WithResponse(map[string]int{"reset": reset}))
		logger.Using(ctx, s.logger).Info("Stale pending mappings reset", zap.Int("count", reset))
	}
	return reset, nil
}

func (s *SyncService) sweepItem(ctx context.Context, result *SweepResult, localID string, res *SyncResult, err error) {
	switch {
	case err == nil:
		result.add(res)
	case errors.Is(err, integration.ErrSyncInProgress):
		result.add(nil)
	default:
		result.Processed++
		result.Failed++
		logger.Using(ctx, s.logger).Warn("Sweep item failed",
			zap.String("local_id", localID),
			zap.Error(err),
		)
	}
}
