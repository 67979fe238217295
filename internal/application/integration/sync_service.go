package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
)

// ErrPublisherNotConfigured is returned when a task must be queued but no
// publisher was set
var ErrPublisherNotConfigured = errors.New("integration: task publisher not configured")

// SyncDependencies are the collaborators of SyncService
type SyncDependencies struct {
	Settings   *SettingsService
	Mappings   *MappingService
	Audit      *AuditService
	Catalog    integration.CatalogReader
	WriteBack  integration.CatalogWriter
	References integration.RemoteReferenceReader
	Prices     integration.PriceListReader
	Groups     integration.ItemGroupReader
	Categories integration.CategoryMappingRepository
	Client     integration.StorefrontClient
}

// SyncService is the outbound sync orchestrator. It decides whether an
// entity syncs, transforms it, submits it and records the outcome on the
// mapping and in the audit log. Failures of one attempt are contained in
// its SyncResult.
type SyncService struct {
	settings   *SettingsService
	mappings   *MappingService
	audit      *AuditService
	catalog    integration.CatalogReader
	writeBack  integration.CatalogWriter
	references integration.RemoteReferenceReader
	prices     integration.PriceListReader
	groups     integration.ItemGroupReader
	categories integration.CategoryMappingRepository
	client     integration.StorefrontClient

	publisher integration.TaskPublisher
	metrics   *telemetry.SyncMetrics
	logger    *zap.Logger
	now       func() time.Time
	wait      func(ctx context.Context, d time.Duration) error
}

// NewSyncService creates a sync orchestrator
func NewSyncService(deps SyncDependencies, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		settings:   deps.Settings,
		mappings:   deps.Mappings,
		audit:      deps.Audit,
		catalog:    deps.Catalog,
		writeBack:  deps.WriteBack,
		references: deps.References,
		prices:     deps.Prices,
		groups:     deps.Groups,
		categories: deps.Categories,
		client:     deps.Client,
		logger:     logger.Named("sync"),
		now:        time.Now,
		wait:       waitFor,
	}
}

// SetPublisher sets the queue used for retries and change notifications.
// The queue is built after the services, so it is injected afterwards.
func (s *SyncService) SetPublisher(p integration.TaskPublisher) {
	s.publisher = p
}

// SetSyncMetrics sets the metric recorder
func (s *SyncService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

func waitFor(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Attempt bookkeeping
// ---------------------------------------------------------------------------

// attempt carries the state of one sync attempt so that every exit path,
// including a recovered panic, can record the same outcome
type attempt struct {
	kind     integration.EntityKind
	localID  string
	trigger  integration.TriggerType
	op       integration.OperationType
	settings integration.Settings
	// mapping is updated with the outcome when set
	mapping *integration.EntityMapping
	// writeBack mirrors the outcome onto the catalog item
	writeBack bool
	request   any
	started   time.Time
	span      trace.Span
}

func (s *SyncService) newAttempt(span trace.Span, kind integration.EntityKind, localID string, trigger integration.TriggerType, op integration.OperationType) *attempt {
	return &attempt{
		kind:    kind,
		localID: localID,
		trigger: trigger,
		op:      op,
		started: s.now(),
		span:    span,
	}
}

func (s *SyncService) finishSuccess(ctx context.Context, a *attempt, res *integration.RemoteResult, message string) *SyncResult {
	now := s.now()
	remoteID := res.RemoteID
	if a.mapping != nil {
		a.mapping.RecordSuccess(remoteID, now)
		s.saveMapping(ctx, a.mapping)
		remoteID = a.mapping.RemoteID
	}
	if a.writeBack {
		s.writeSyncFields(ctx, a.localID, remoteID, integration.SyncStatusSynced, &now)
	}

	entry := integration.NewAuditLogEntry(a.op, a.kind, a.localID, integration.AuditStatusSuccess).
		WithTrigger(a.trigger).
		WithRemoteID(remoteID).
		WithMessage(message).
		WithRequest(a.request).
		WithResponse(res.Data).
		WithDuration(now.Sub(a.started))
	s.audit.Record(ctx, entry)

	s.recordMetric(ctx, a, telemetry.OutcomeSuccess, integration.FailureNone, now.Sub(a.started))
	telemetry.SetAttributes(a.span, telemetry.SpanAttrRemoteID, remoteID, telemetry.SpanAttrOperation, a.op)
	telemetry.SetOK(a.span)

	logger.Using(ctx, s.logger).Info("Entity synced",
		zap.String("kind", a.kind.String()),
		zap.String("local_id", a.localID),
		zap.String("remote_id", remoteID),
		zap.String("operation", a.op.String()),
		zap.String("trigger", a.trigger.String()),
	)
	return &SyncResult{
		LocalID:   a.localID,
		Kind:      a.kind,
		Success:   true,
		Operation: a.op,
		RemoteID:  remoteID,
		Message:   message,
	}
}

// finishFailure records a failed attempt. res is nil when the attempt failed
// before a remote call was made.
func (s *SyncService) finishFailure(ctx context.Context, a *attempt, kind integration.ErrorKind, msg string, res *integration.RemoteResult) *SyncResult {
	now := s.now()
	result := &SyncResult{
		LocalID:   a.localID,
		Kind:      a.kind,
		Operation: a.op,
		Message:   msg,
		ErrorKind: kind,
	}

	var decision integration.RetryDecision
	if a.mapping != nil {
		a.mapping.RecordFailure(msg, now)
		decision = a.settings.RetryPolicy().Decide(a.mapping, a.op, kind, msg, now)
		a.mapping.ApplyRetry(decision)
		s.saveMapping(ctx, a.mapping)
		result.RemoteID = a.mapping.RemoteID
	}
	if a.writeBack {
		s.writeSyncFields(ctx, a.localID, result.RemoteID, integration.SyncStatusError, &now)
	}

	entry := integration.NewAuditLogEntry(a.op, a.kind, a.localID, integration.AuditStatusError).
		WithTrigger(a.trigger).
		WithRemoteID(result.RemoteID).
		WithMessage(msg).
		WithRequest(a.request).
		WithDuration(now.Sub(a.started))
	failure := integration.FailureNone
	if res != nil {
		failure = res.Failure
		entry.WithResponse(res.ErrorData).WithError(fmt.Sprintf("HTTP %d: %s", res.StatusCode, res.Error))
	} else {
		entry.WithError(msg)
	}
	if decision.Reason != "" {
		entry.WithMessage(msg + " (" + decision.Reason + ")")
	}
	s.audit.Record(ctx, entry)

	if decision.Retry {
		result.RetryScheduled = s.scheduleRetry(ctx, a, decision)
	}

	s.recordMetric(ctx, a, telemetry.OutcomeFailure, failure, now.Sub(a.started))
	telemetry.SetAttributes(a.span, telemetry.SpanAttrOperation, a.op, "sync.error_kind", kind)
	telemetry.RecordError(a.span, fmt.Errorf("%w: %s", kind.Err(), msg))

	logger.Using(ctx, s.logger).Warn("Entity sync failed",
		zap.String("kind", a.kind.String()),
		zap.String("local_id", a.localID),
		zap.String("operation", a.op.String()),
		zap.String("error_kind", kind.String()),
		zap.Bool("retry_scheduled", result.RetryScheduled),
		zap.Bool("retries_exhausted", decision.Exhausted),
		zap.String("error", msg),
	)
	return result
}

// finishUnexpected records an error or recovered panic from anywhere in the
// pipeline. The mapping leaves Pending so the entity can sync again.
func (s *SyncService) finishUnexpected(ctx context.Context, a *attempt, err error) *SyncResult {
	logger.Using(ctx, s.logger).Error("Unexpected sync failure",
		zap.String("kind", a.kind.String()),
		zap.String("local_id", a.localID),
		zap.Error(err),
	)
	return s.finishFailure(ctx, a, integration.ErrorKindUnexpected, err.Error(), nil)
}

// finishSkipped reports an eligibility skip. Routine automatic skips leave
// no audit trail; explicit requests record why nothing happened.
func (s *SyncService) finishSkipped(ctx context.Context, a *attempt, reason integration.SkipReason) *SyncResult {
	if a.trigger.IsExplicit() {
		entry := integration.NewAuditLogEntry(a.op, a.kind, a.localID, integration.AuditStatusSkipped).
			WithTrigger(a.trigger).
			WithMessage("Skipped: " + reason.String()).
			WithDuration(s.now().Sub(a.started))
		s.audit.Record(ctx, entry)
	}
	s.recordMetric(ctx, a, telemetry.OutcomeSkipped, integration.FailureNone, 0)
	telemetry.AddEvent(a.span, "sync.skipped", "reason", reason.String())

	logger.Using(ctx, s.logger).Debug("Entity sync skipped",
		zap.String("kind", a.kind.String()),
		zap.String("local_id", a.localID),
		zap.String("trigger", a.trigger.String()),
		zap.String("reason", reason.String()),
	)
	return &SyncResult{
		LocalID:    a.localID,
		Kind:       a.kind,
		Skipped:    true,
		SkipReason: reason.String(),
		Operation:  a.op,
		Message:    reason.String(),
	}
}

func (s *SyncService) scheduleRetry(ctx context.Context, a *attempt, d integration.RetryDecision) bool {
	if s.publisher == nil {
		// The retry sweep picks the mapping up once NextRetryAt passes
		return false
	}
	taskType := integration.TaskSyncProduct
	if a.kind == integration.EntityKindCategory {
		taskType = integration.TaskSyncCategory
	}
	task := integration.NewSyncTask(taskType, a.localID, integration.TriggerRetry).Delay(d.Delay)
	if a.mapping != nil {
		task.Attempt = a.mapping.RetryCount
	}
	if err := s.publisher.Publish(ctx, task); err != nil {
		logger.Using(ctx, s.logger).Warn("Failed to queue retry",
			zap.String("local_id", a.localID),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (s *SyncService) saveMapping(ctx context.Context, m *integration.EntityMapping) {
	if err := s.mappings.Save(ctx, m); err != nil {
		logger.Using(ctx, s.logger).Error("Failed to save entity mapping",
			zap.String("kind", m.Kind.String()),
			zap.String("local_id", m.LocalID),
			zap.String("status", m.Status.String()),
			zap.Error(err),
		)
	}
}

func (s *SyncService) writeSyncFields(ctx context.Context, code, remoteID string, status integration.SyncStatus, at *time.Time) {
	if s.writeBack == nil {
		return
	}
	err := s.writeBack.UpdateSyncFields(ctx, code, remoteID, status, at)
	if err != nil && !errors.Is(err, integration.ErrLocalEntityNotFound) {
		logger.Using(ctx, s.logger).Warn("Failed to write sync fields back to catalog",
			zap.String("local_id", code),
			zap.Error(err),
		)
	}
}

func (s *SyncService) recordMetric(ctx context.Context, a *attempt, outcome string, failure integration.FailureType, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordSync(ctx, a.kind, a.op.String(), a.trigger, outcome, failure, d)
}

// ---------------------------------------------------------------------------
// Product sync
// ---------------------------------------------------------------------------

// SyncEntity pushes one catalog item to the storefront, creating it when the
// mapping has no remote id and updating it otherwise. The returned error is
// set only for a missing item or a concurrent sync of the same item.
func (s *SyncService) SyncEntity(ctx context.Context, localID string, trigger integration.TriggerType) (result *SyncResult, err error) {
	localID = strings.TrimSpace(localID)
	if localID == "" {
		return nil, integration.ErrInvalidLocalID
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "SyncEntity",
		telemetry.WithAttribute(telemetry.SpanAttrEntityKind, integration.EntityKindProduct),
		telemetry.WithAttribute(telemetry.SpanAttrLocalID, localID),
		telemetry.WithAttribute(telemetry.SpanAttrTrigger, trigger),
	)
	defer span.End()

	a := s.newAttempt(span, integration.EntityKindProduct, localID, trigger, integration.OperationProductSync)
	defer func() {
		if r := recover(); r != nil {
			result = s.finishUnexpected(ctx, a, fmt.Errorf("%w: panic: %v", integration.ErrUnexpected, r))
			err = nil
		}
	}()
	return s.syncProduct(ctx, a)
}

func (s *SyncService) syncProduct(ctx context.Context, a *attempt) (*SyncResult, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return s.finishUnexpected(ctx, a, err), nil
	}
	a.settings = settings

	item, err := s.catalog.FindByCode(ctx, a.localID)
	if err != nil {
		if errors.Is(err, integration.ErrLocalEntityNotFound) {
			return nil, err
		}
		return s.finishUnexpected(ctx, a, err), nil
	}

	mapping, err := s.mappings.Find(ctx, integration.EntityKindProduct, a.localID)
	if err != nil {
		return s.finishUnexpected(ctx, a, err), nil
	}
	if ok, reason := integration.ShouldSync(settings, item, a.trigger, mapping); !ok {
		return s.finishSkipped(ctx, a, reason), nil
	}

	if mapping == nil {
		if mapping, err = s.mappings.GetOrCreate(ctx, integration.EntityKindProduct, a.localID); err != nil {
			return s.finishUnexpected(ctx, a, err), nil
		}
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
	a.writeBack = true

	if err := settings.CheckReady(); err != nil {
		return s.finishFailure(ctx, a, integration.ErrorKindConfiguration, err.Error(), nil), nil
	}

	payload, err := s.buildProductPayload(ctx, settings, item)
	if err != nil {
		return s.finishUnexpected(ctx, a, err), nil
	}
	a.request = payload
	if errs := integration.ValidateRemotePayload(payload); len(errs) > 0 {
		return s.finishFailure(ctx, a, integration.ErrorKindValidation, "Validation failed: "+strings.Join(errs, "; "), nil), nil
	}

	res := s.submitProduct(ctx, a, payload)
	if !res.Success {
		return s.finishFailure(ctx, a, res.Kind(), res.Error, res), nil
	}
	if a.op == integration.OperationProductCreate && res.RemoteID == "" {
		// Without an id the next sync would create the product a second time
		return s.finishFailure(ctx, a, integration.ErrorKindUnexpected, "Storefront confirmed the create but returned no product id", nil), nil
	}
	verb := "updated"
	if a.op == integration.OperationProductCreate {
		verb = "created"
	}
	return s.finishSuccess(ctx, a, res, fmt.Sprintf("Product %s %s on storefront", a.localID, verb)), nil
}

// submitProduct chooses create or update from the mapping's remote id
func (s *SyncService) submitProduct(ctx context.Context, a *attempt, payload *integration.ProductPayload) *integration.RemoteResult {
	remoteID := a.mapping.RemoteID
	if remoteID != "" && a.settings.VerifyRemoteBeforeUpdate {
		check := s.client.GetProduct(ctx, a.settings, remoteID)
		if check.IsNotFound() {
			logger.Using(ctx, s.logger).Info("Storefront product is gone, creating it again",
				zap.String("local_id", a.localID),
				zap.String("stale_remote_id", remoteID),
			)
			a.mapping.RemoteID = ""
			remoteID = ""
		}
	}

	if remoteID == "" {
		a.op = integration.OperationProductCreate
		return s.client.CreateProduct(ctx, a.settings, payload)
	}
	a.op = integration.OperationProductUpdate
	update := payload.ForUpdate(a.settings)
	a.request = update
	return s.client.UpdateProduct(ctx, a.settings, remoteID, update)
}

func (s *SyncService) buildProductPayload(ctx context.Context, settings integration.Settings, item *integration.CatalogItem) (*integration.ProductPayload, error) {
	var listPrice decimal.NullDecimal
	if settings.DefaultPriceList != "" && s.prices != nil {
		price, ok, err := s.prices.FindItemPrice(ctx, settings.DefaultPriceList, item.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve price: %w", err)
		}
		if ok {
			listPrice = decimal.NullDecimal{Decimal: price, Valid: true}
		}
	}

	collectionID := ""
	if settings.SyncCategories && item.ItemGroup != "" && s.categories != nil {
		cm, err := s.categories.FindByItemGroup(ctx, item.ItemGroup)
		switch {
		case err == nil && cm.IsActive:
			collectionID = cm.RemoteID
		case errors.Is(err, integration.ErrCategoryMappingNotFound):
			s.queueCategory(ctx, item.ItemGroup)
		case err != nil:
			return nil, fmt.Errorf("failed to resolve category: %w", err)
		}
	}

	return integration.ToRemotePayload(item, integration.ResolvePrice(listPrice, item.StandardPrice), settings, collectionID), nil
}

// ---------------------------------------------------------------------------
// Bulk sync
// ---------------------------------------------------------------------------

// BulkSync syncs up to the configured batch size of ids, pausing between
// items. Ids past the batch size are deferred. One item's failure never
// stops the others.
func (s *SyncService) BulkSync(ctx context.Context, ids []string) (*BulkSyncSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "BulkSync",
		telemetry.WithAttribute("sync.requested", len(ids)),
	)
	defer span.End()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ids = uniqueIDs(ids)
	started := s.now()
	summary := &BulkSyncSummary{
		Total:    len(ids),
		Deferred: []string{},
		Errors:   []BulkItemError{},
	}

	run := ids
	if batch := settings.EffectiveBatchSize(); len(run) > batch {
		run = ids[:batch]
		summary.Deferred = append(summary.Deferred, ids[batch:]...)
	}

	for i, id := range run {
		if i > 0 && settings.BulkItemDelay > 0 {
			if err := s.wait(ctx, settings.BulkItemDelay); err != nil {
				summary.Deferred = append(summary.Deferred, run[i:]...)
				break
			}
		}

		res, err := s.SyncEntity(ctx, id, integration.TriggerBulk)
		switch {
		case errors.Is(err, integration.ErrSyncInProgress):
			summary.Skipped++
		case err != nil:
			summary.Failed++
			summary.Errors = append(summary.Errors, BulkItemError{LocalID: id, Error: err.Error()})
		case res.Skipped:
			summary.Skipped++
		case res.Success:
			summary.Success++
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, BulkItemError{LocalID: id, Error: res.Message})
		}
	}
	summary.Duration = s.now().Sub(started)

	status := integration.AuditStatusSuccess
	if summary.Failed > 0 {
		status = integration.AuditStatusError
	}
	msg := fmt.Sprintf("Bulk sync: %d requested, %d synced, %d failed, %d skipped, %d deferred",
		summary.Total, summary.Success, summary.Failed, summary.Skipped, len(summary.Deferred))
	s.audit.Record(ctx, integration.NewAuditLogEntry(integration.OperationBulkSync, integration.EntityKindProduct, fmt.Sprintf("%d items", summary.Total), status).
		WithTrigger(integration.TriggerBulk).
		WithMessage(msg).
		WithResponse(summary).
		WithDuration(summary.Duration))

	telemetry.SetAttributes(span,
		"sync.success", summary.Success,
		"sync.failed", summary.Failed,
		"sync.deferred", len(summary.Deferred),
	)
	logger.Using(ctx, s.logger).Info("Bulk sync finished",
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("deferred", len(summary.Deferred)),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ---------------------------------------------------------------------------
// Status, reset and connection
// ---------------------------------------------------------------------------

// GetSyncStatus returns the sync state of a catalog item
func (s *SyncService) GetSyncStatus(ctx context.Context, localID string) (SyncStatusView, error) {
	m, err := s.mappings.Find(ctx, integration.EntityKindProduct, localID)
	if err != nil {
		return SyncStatusView{}, err
	}
	if m == nil {
		exists, err := s.catalog.ExistsByCode(ctx, localID)
		if err != nil {
			return SyncStatusView{}, err
		}
		if !exists {
			return SyncStatusView{}, integration.ErrLocalEntityNotFound
		}
	}
	return NewSyncStatusView(integration.EntityKindProduct, localID, m), nil
}

// ResetSyncStatus clears the error and retry state of an item so that it is
// synced again. The remote id is kept.
func (s *SyncService) ResetSyncStatus(ctx context.Context, localID string) (SyncStatusView, error) {
	m, err := s.mappings.Find(ctx, integration.EntityKindProduct, localID)
	if err != nil {
		return SyncStatusView{}, err
	}
	if m == nil {
		return SyncStatusView{}, integration.ErrMappingNotFound
	}

	now := s.now()
	if _, err := s.mappings.Update(ctx, m, func(m *integration.EntityMapping) bool {
		m.Reset(now)
		return true
	}); err != nil {
		return SyncStatusView{}, err
	}
	s.writeSyncFields(ctx, localID, m.RemoteID, integration.SyncStatusNotSynced, m.LastSyncAt)

	logger.Using(ctx, s.logger).Info("Sync status reset", zap.String("local_id", localID))
	return NewSyncStatusView(integration.EntityKindProduct, localID, m), nil
}

// TestConnection checks the stored credentials against the storefront
func (s *SyncService) TestConnection(ctx context.Context) (*ConnectionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "TestConnection")
	defer span.End()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	started := s.now()
	result := &ConnectionResult{CheckedAt: started}
	res := s.client.TestConnection(ctx, settings)
	result.StatusCode = res.StatusCode
	if res.Success {
		result.Success = true
		result.Message = "Connection successful"
	} else {
		result.Message = "Connection failed: " + res.Error
	}

	status := integration.AuditStatusSuccess
	if !result.Success {
		status = integration.AuditStatusError
	}
	entry := integration.NewAuditLogEntry(integration.OperationConnectionTest, integration.EntityKindProduct, "connection", status).
		WithTrigger(integration.TriggerManual).
		WithMessage(result.Message).
		WithDuration(s.now().Sub(started))
	if !res.Success {
		entry.WithError(res.Error).WithResponse(res.ErrorData)
	}
	s.audit.Record(ctx, entry)
	return result, nil
}

// ---------------------------------------------------------------------------
// Deletion and change notifications
// ---------------------------------------------------------------------------

// DeleteEntity removes the storefront counterpart of a deleted catalog item.
// An item that was never created remotely, or is already gone, succeeds.
func (s *SyncService) DeleteEntity(ctx context.Context, localID string, trigger integration.TriggerType) (result *SyncResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SyncService", "DeleteEntity",
		telemetry.WithAttribute(telemetry.SpanAttrLocalID, localID),
	)
	defer span.End()

	a := s.newAttempt(span, integration.EntityKindProduct, localID, trigger, integration.OperationProductDelete)
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

	m, err := s.mappings.Find(ctx, integration.EntityKindProduct, localID)
	if err != nil {
		return s.finishUnexpected(ctx, a, err), nil
	}
	if m == nil || !m.HasRemote() {
		return &SyncResult{LocalID: localID, Kind: a.kind, Success: true, Operation: a.op, Message: "Nothing to delete on storefront"}, nil
	}
	if err := s.mappings.ClaimForSync(ctx, m); err != nil {
		switch {
		case errors.Is(err, integration.ErrSyncInProgress):
			return nil, err
		case errors.Is(err, integration.ErrMappingDisabled):
			return &SyncResult{LocalID: localID, Kind: a.kind, Success: true, Operation: a.op, Message: "Nothing to delete on storefront"}, nil
		}
		return s.finishUnexpected(ctx, a, err), nil
	}
	if !m.HasRemote() {
		// Cleared by another writer after it was read; the local entity is gone
		m.Disable(s.now())
		s.saveMapping(ctx, m)
		return &SyncResult{LocalID: localID, Kind: a.kind, Success: true, Operation: a.op, Message: "Nothing to delete on storefront"}, nil
	}
	a.mapping = m
	if err := settings.CheckReady(); err != nil {
		return s.finishFailure(ctx, a, integration.ErrorKindConfiguration, err.Error(), nil), nil
	}

	remoteID := m.RemoteID
	res := s.client.DeleteProduct(ctx, settings, remoteID)
	if !res.Success {
		return s.finishFailure(ctx, a, res.Kind(), res.Error, res), nil
	}

	// The local entity is gone, so the mapping is kept but switched off
	now := s.now()
	m.RecordSuccess("", now)
	m.RemoteID = ""
	m.RemoteSlug = ""
	m.Disable(now)
	s.saveMapping(ctx, m)

	s.audit.Record(ctx, integration.NewAuditLogEntry(a.op, a.kind, localID, integration.AuditStatusSuccess).
		WithTrigger(trigger).
		WithRemoteID(remoteID).
		WithMessage(fmt.Sprintf("Product %s deleted from storefront", localID)).
		WithDuration(now.Sub(a.started)))
	s.recordMetric(ctx, a, telemetry.OutcomeSuccess, integration.FailureNone, now.Sub(a.started))
	telemetry.SetOK(span)

	return &SyncResult{LocalID: localID, Kind: a.kind, Success: true, Operation: a.op, RemoteID: remoteID, Message: "Product deleted from storefront"}, nil
}

// OnEntityChanged queues an automatic sync after a local item changed. It
// returns without queueing when automatic sync is off.
func (s *SyncService) OnEntityChanged(ctx context.Context, localID string) error {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return err
	}
	if !settings.Enabled || !settings.AutoSyncItems {
		return nil
	}
	return s.publish(ctx, integration.NewSyncTask(integration.TaskSyncProduct, localID, integration.TriggerAuto))
}

// OnStockChanged queues an automatic inventory push after a stock movement
func (s *SyncService) OnStockChanged(ctx context.Context, localID string) error {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return err
	}
	if !settings.Enabled || !settings.SyncInventory || !settings.AutoSyncInventory {
		return nil
	}
	return s.publish(ctx, integration.NewSyncTask(integration.TaskSyncInventory, localID, integration.TriggerAuto))
}

// OnEntityDeleted queues the removal of a deleted item's storefront counterpart
func (s *SyncService) OnEntityDeleted(ctx context.Context, localID string) error {
	return s.publish(ctx, integration.NewSyncTask(integration.TaskDeleteProduct, localID, integration.TriggerAuto))
}

func (s *SyncService) publish(ctx context.Context, task *integration.SyncTask) error {
	if s.publisher == nil {
		return ErrPublisherNotConfigured
	}
	if err := s.publisher.Publish(ctx, task); err != nil {
		return fmt.Errorf("failed to queue %s task: %w", task.Type, err)
	}
	return nil
}
