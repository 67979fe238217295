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

// DefaultBackfillBatch is the catalog page size of a backfill run
const DefaultBackfillBatch = 200

// BackfillResult summarizes a mapping backfill
type BackfillResult struct {
	Scanned  int             `json:"scanned"`
	Created  int             `json:"created"`
	Existing int             `json:"existing"`
	Failed   int             `json:"failed"`
	Errors   []BulkItemError `json:"errors,omitempty"`
}

// BackfillMappings creates product mappings for catalog items that carry a
// remote id from before mappings were kept. Items that already have a
// mapping are left alone, so the run can be repeated.
func (s *SyncService) BackfillMappings(ctx context.Context, batch int) (*BackfillResult, error) {
	if s.references == nil {
		return nil, fmt.Errorf("%w: no catalog reference reader configured", integration.ErrConfiguration)
	}
	if batch <= 0 {
		batch = DefaultBackfillBatch
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "BackfillMappings")
	defer span.End()

	started := s.now()
	result := &BackfillResult{}
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		items, err := s.references.FindWithRemoteID(ctx, after, batch)
		if err != nil {
			telemetry.RecordError(span, err)
			return result, err
		}
		for i := range items {
			s.backfillItem(ctx, result, &items[i])
		}
		if len(items) < batch {
			break
		}
		after = items[len(items)-1].Code
	}

	status := integration.AuditStatusSuccess
	if result.Failed > 0 {
		status = integration.AuditStatusError
	}
	s.audit.Record(ctx, integration.NewAuditLogEntry(integration.OperationMaintenance, integration.EntityKindProduct, "backfill", status).
		WithTrigger(integration.TriggerManual).
		WithMessage(fmt.Sprintf("Backfilled %d mappings from catalog remote ids", result.Created)).
		WithResponse(result).
		WithDuration(s.now().Sub(started)))
	telemetry.SetAttributes(span, "backfill.created", result.Created, "backfill.failed", result.Failed)
	logger.Using(ctx, s.logger).Info("Mapping backfill finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *SyncService) backfillItem(ctx context.Context, result *BackfillResult, item *integration.CatalogItem) {
	result.Scanned++
	fail := func(err error) {
		result.Failed++
		result.Errors = append(result.Errors, BulkItemError{LocalID: item.Code, Error: err.Error()})
		logger.Using(ctx, s.logger).Warn("Failed to backfill mapping",
			zap.String("local_id", item.Code),
			zap.String("remote_id", item.RemoteID),
			zap.Error(err),
		)
	}

	existing, err := s.mappings.Find(ctx, integration.EntityKindProduct, item.Code)
	if err != nil {
		fail(err)
		return
	}
	if existing != nil {
		result.Existing++
		return
	}

	m, err := integration.NewBackfilledMapping(item)
	if err != nil {
		fail(err)
		return
	}
	err = s.mappings.Create(ctx, m)
	if err == nil {
		result.Created++
		return
	}
	if errors.Is(err, integration.ErrMappingAlreadyExists) {
		// Either created meanwhile or the remote id belongs to another item
		if existing, ferr := s.mappings.Find(ctx, integration.EntityKindProduct, item.Code); ferr == nil && existing != nil {
			result.Existing++
			return
		}
		err = fmt.Errorf("remote id %s is already mapped to another item", item.RemoteID)
	}
	fail(err)
}
