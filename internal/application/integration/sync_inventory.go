package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
)

const skipCategoriesOff integration.SkipReason = "category sync is disabled"

// SyncInventory pushes the stock level of a mapped stock item. The product
// mapping is only read: inventory failures are audited and picked up again
// by the next inventory sweep.
func (s *SyncService) SyncInventory(ctx context.Context, localID string, trigger integration.TriggerType) (result *SyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "SyncInventory",
		telemetry.WithAttribute(telemetry.SpanAttrLocalID, localID),
		telemetry.WithAttribute(telemetry.SpanAttrTrigger, trigger),
	)
	defer span.End()

	a := s.newAttempt(span, integration.EntityKindProduct, localID, trigger, integration.OperationInventorySync)
	defer func() {
		if r := recover(); r != nil {
			result = s.finishUnexpected(ctx, a, fmt.Errorf("%w: panic: %v", integration.ErrUnexpected, r))
			err = nil
		}
	}()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return s.finishUnexpected(ctx, a, err), nil
	}
	a.settings = settings

	item, err := s.catalog.FindByCode(ctx, localID)
	if err != nil {
		if errors.Is(err, integration.ErrLocalEntityNotFound) {
			return nil, err
		}
		return s.finishUnexpected(ctx, a, err), nil
	}
	mapping, err := s.mappings.Find(ctx, integration.EntityKindProduct, localID)
	if err != nil {
		return s.finishUnexpected(ctx, a, err), nil
	}
	if ok, reason := integration.ShouldSyncInventory(settings, item, trigger, mapping); !ok {
		return s.finishSkipped(ctx, a, reason), nil
	}
	if err := settings.CheckReady(); err != nil {
		return s.finishFailure(ctx, a, integration.ErrorKindConfiguration, err.Error(), nil), nil
	}

	payload := integration.ToInventoryPayload(item)
	a.request = payload
	res := s.client.UpdateInventory(ctx, settings, mapping.RemoteID, payload)
	if !res.Success {
		if res.IsNotFound() {
			// The product was removed on the storefront; the next product
			// sync re-creates it
			now := s.now()
			staleRemote := mapping.RemoteID
			cleared, err := s.mappings.Update(ctx, mapping, func(m *integration.EntityMapping) bool {
				if m.RemoteID != staleRemote {
					return false
				}
				m.MarkRemoteDeleted(now)
				return true
			})
			if err != nil {
				logger.Using(ctx, s.logger).Error("Failed to clear deleted remote product",
					zap.String("local_id", localID),
					zap.String("remote_id", staleRemote),
					zap.Error(err),
				)
			}
			if cleared {
				s.writeSyncFields(ctx, localID, "", integration.SyncStatusError, &now)
			}
		}
		return s.finishFailure(ctx, a, res.Kind(), res.Error, res), nil
	}
	return s.finishSuccess(ctx, a, res, fmt.Sprintf("Inventory of %s set to %d", localID, payload.Quantity)), nil
}

// SyncCategory creates the storefront collection of an item group and
// records the category mapping. A group that is already mapped is left
// alone.
func (s *SyncService) SyncCategory(ctx context.Context, itemGroup string, trigger integration.TriggerType) (result *SyncResult, err error) {
	itemGroup = strings.TrimSpace(itemGroup)
	if itemGroup == "" {
		return nil, integration.ErrInvalidLocalID
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "SyncCategory",
		telemetry.WithAttribute(telemetry.SpanAttrEntityKind, integration.EntityKindCategory),
		telemetry.WithAttribute(telemetry.SpanAttrLocalID, itemGroup),
	)
	defer span.End()

	a := s.newAttempt(span, integration.EntityKindCategory, itemGroup, trigger, integration.OperationCategorySync)
	defer func() {
		if r := recover(); r != nil {
			result = s.finishUnexpected(ctx, a, fmt.Errorf("%w: panic: %v", integration.ErrUnexpected, r))
			err = nil
		}
	}()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return s.finishUnexpected(ctx, a, err), nil
	}
	a.settings = settings
	switch {
	case !settings.Enabled:
		return s.finishSkipped(ctx, a, integration.SkipIntegrationOff), nil
	case !settings.SyncCategories:
		return s.finishSkipped(ctx, a, skipCategoriesOff), nil
	}

	group, err := s.groups.FindByName(ctx, itemGroup)
	if err != nil {
		if errors.Is(err, integration.ErrLocalEntityNotFound) {
			return nil, err
		}
		return s.finishUnexpected(ctx, a, err), nil
	}

	existing, err := s.categories.FindByItemGroup(ctx, itemGroup)
	switch {
	case err == nil && existing.IsActive && existing.RemoteID != "":
		return &SyncResult{
			LocalID:   itemGroup,
			Kind:      a.kind,
			Success:   true,
			Operation: a.op,
			RemoteID:  existing.RemoteID,
			Message:   "Category already mapped",
		}, nil
	case err != nil && !errors.Is(err, integration.ErrCategoryMappingNotFound):
		return s.finishUnexpected(ctx, a, err), nil
	}

	mapping, err := s.mappings.GetOrCreate(ctx, integration.EntityKindCategory, itemGroup)
	if err != nil {
		return s.finishUnexpected(ctx, a, err), nil
	}
	if mapping.IsDisabled() {
		return s.finishSkipped(ctx, a, integration.SkipMappingDisabled), nil
	}
	if err := s.mappings.ClaimForSync(ctx, mapping); err != nil {
		switch {
		case errors.Is(err, integration.ErrSyncInProgress):
			return nil, err
		case errors.Is(err, integration.ErrMappingDisabled):
			return s.finishSkipped(ctx, a, integration.SkipMappingDisabled), nil
		}
		return s.finishUnexpected(ctx, a, err), nil
	}
	a.mapping = mapping

	if err := settings.CheckReady(); err != nil {
		return s.finishFailure(ctx, a, integration.ErrorKindConfiguration, err.Error(), nil), nil
	}

	payload := integration.ToCategoryPayload(group, settings)
	a.request = payload
	res := s.client.CreateCategory(ctx, settings, payload)
	if !res.Success {
		return s.finishFailure(ctx, a, res.Kind(), res.Error, res), nil
	}
	if res.RemoteID == "" {
		return s.finishUnexpected(ctx, a, fmt.Errorf("%w: storefront returned no category id", integration.ErrUnexpected)), nil
	}

	cm := existing
	if cm == nil {
		if cm, err = integration.NewCategoryMapping(itemGroup, res.RemoteID, payload.Name); err != nil {
			return s.finishUnexpected(ctx, a, err), nil
		}
	}
	now := s.now()
	cm.RemoteID = res.RemoteID
	cm.RemoteName = payload.Name
	cm.IsActive = true
	cm.LastSyncAt = &now
	if err := s.categories.Save(ctx, cm); err != nil {
		return s.finishUnexpected(ctx, a, fmt.Errorf("failed to save category mapping: %w", err)), nil
	}
	mapping.RemoteName = payload.Name
	mapping.RemoteSlug = payload.Slug

	return s.finishSuccess(ctx, a, res, fmt.Sprintf("Category %s created on storefront", itemGroup)), nil
}

// queueCategory asks for the collection of an unmapped item group to be
// created, so later product syncs can reference it
func (s *SyncService) queueCategory(ctx context.Context, itemGroup string) {
	if s.publisher == nil {
		return
	}
	task := integration.NewSyncTask(integration.TaskSyncCategory, itemGroup, integration.TriggerAuto)
	if err := s.publisher.Publish(ctx, task); err != nil {
		logger.Using(ctx, s.logger).Warn("Failed to queue category sync",
			zap.String("item_group", itemGroup),
			zap.Error(err),
		)
	}
}
