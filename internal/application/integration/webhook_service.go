package integration

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
)

// signaturePrefix is accepted in front of the hex digest
const signaturePrefix = "sha256="

// Sign returns the hex HMAC-SHA256 of body under secret
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares signature with the HMAC of body in constant time
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, signaturePrefix)
	got, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// WebhookDependencies are the collaborators of WebhookService
type WebhookDependencies struct {
	Settings   *SettingsService
	Mappings   *MappingService
	Audit      *AuditService
	Orders     *OrderService
	Categories integration.CategoryMappingRepository
	Groups     integration.ItemGroupReader
	WriteBack  integration.CatalogWriter
	Dedup      integration.EventDeduplicator
}

// WebhookService verifies, deduplicates and dispatches storefront webhook
// deliveries. Every delivery produces exactly one audit entry.
type WebhookService struct {
	settings   *SettingsService
	mappings   *MappingService
	audit      *AuditService
	orders     *OrderService
	categories integration.CategoryMappingRepository
	groups     integration.ItemGroupReader
	writeBack  integration.CatalogWriter
	dedup      integration.EventDeduplicator
	dedupTTL   time.Duration

	metrics *telemetry.SyncMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewWebhookService creates a webhook service. dedupTTL is how long event
// ids are remembered.
func NewWebhookService(deps WebhookDependencies, dedupTTL time.Duration, logger *zap.Logger) *WebhookService {
	if dedupTTL <= 0 {
		dedupTTL = integration.DefaultWebhookDedupTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		settings:   deps.Settings,
		mappings:   deps.Mappings,
		audit:      deps.Audit,
		orders:     deps.Orders,
		categories: deps.Categories,
		groups:     deps.Groups,
		writeBack:  deps.WriteBack,
		dedup:      deps.Dedup,
		dedupTTL:   dedupTTL,
		logger:     logger.Named("webhook"),
		now:        time.Now,
	}
}

// SetSyncMetrics sets the metric recorder
func (s *WebhookService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// delivery accumulates what the audit entry of one webhook reports
type delivery struct {
	req       WebhookRequest
	event     *integration.WebhookEvent
	kind      integration.EntityKind
	entityRef string
	remoteID  string
	started   time.Time
}

// outcome is what a dispatched event did
type outcome struct {
	action   string
	message  string
	remoteID string
}

// Handle processes one webhook delivery. It never returns a nil result;
// StatusCode carries the HTTP status to answer with.
func (s *WebhookService) Handle(ctx context.Context, req WebhookRequest) (result *WebhookResult) {
	ctx, span := telemetry.StartServiceSpan(ctx, "WebhookService", "Handle")
	defer span.End()

	d := &delivery{req: req, kind: integration.EntityKindProduct, entityRef: "webhook", started: s.now()}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", integration.ErrUnexpected, r)
			telemetry.RecordError(span, err)
			result = s.fail(ctx, d, http.StatusInternalServerError, err)
		}
	}()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return s.fail(ctx, d, http.StatusInternalServerError, err)
	}

	if err := s.verify(ctx, settings, req); err != nil {
		telemetry.RecordError(span, err)
		return s.reject(ctx, d, http.StatusUnauthorized, err)
	}

	event, err := integration.ParseWebhookEvent(req.Body, req.EventType, req.EventID)
	if err != nil {
		return s.reject(ctx, d, http.StatusBadRequest, err)
	}
	d.event = event
	d.kind = eventEntityKind(event.Type)
	if event.ID != "" {
		d.entityRef = event.ID
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEventType, event.Type.String(),
		telemetry.SpanAttrEventID, event.ID,
	)

	if !settings.Enabled {
		return s.complete(ctx, d, outcome{action: ActionIgnored, message: "Integration is disabled"})
	}

	if event.ID != "" && s.dedup != nil {
		fresh, err := s.dedup.MarkProcessed(ctx, event.ID, s.dedupTTL)
		if err != nil {
			logger.Using(ctx, s.logger).Warn("Webhook deduplication unavailable, processing delivery",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		} else if !fresh {
			return s.complete(ctx, d, outcome{action: ActionDuplicate, message: "Event already processed"})
		}
	}

	out, err := s.dispatch(ctx, event)
	if err != nil {
		s.release(ctx, event.ID)
		telemetry.RecordError(span, err)
		if errors.Is(err, integration.ErrMalformedPayload) || errors.Is(err, integration.ErrInvalidInboundOrder) {
			return s.reject(ctx, d, http.StatusBadRequest, err)
		}
		if errors.Is(err, integration.ErrSyncInProgress) {
			return s.reject(ctx, d, http.StatusConflict, err)
		}
		return s.fail(ctx, d, http.StatusInternalServerError, err)
	}
	telemetry.SetOK(span)
	return s.complete(ctx, d, out)
}

// Reject records a delivery the transport refused before it reached
// Handle, such as an oversized or unreadable body, and returns the answer
// to send
func (s *WebhookService) Reject(ctx context.Context, req WebhookRequest, code int, reason error) *WebhookResult {
	d := &delivery{req: req, kind: integration.EntityKindProduct, entityRef: "webhook", started: s.now()}
	if req.EventID != "" {
		d.entityRef = req.EventID
	}
	return s.reject(ctx, d, code, reason)
}

// verify enforces the signature policy. Unsigned deliveries are accepted
// only when no secret is configured and unsigned webhooks are allowed.
func (s *WebhookService) verify(ctx context.Context, settings integration.Settings, req WebhookRequest) error {
	if settings.WebhookSecret == "" {
		if settings.WebhookVerificationRequired() {
			return fmt.Errorf("%w: no webhook secret configured", integration.ErrInvalidSignature)
		}
		logger.Using(ctx, s.logger).Warn("Accepting unsigned webhook, no secret is configured",
			zap.String("event_type", req.EventType),
		)
		return nil
	}
	if strings.TrimSpace(req.Signature) == "" {
		return integration.ErrMissingSignature
	}
	if !VerifySignature(settings.WebhookSecret, req.Body, req.Signature) {
		return integration.ErrInvalidSignature
	}
	return nil
}

func (s *WebhookService) release(ctx context.Context, eventID string) {
	if eventID == "" || s.dedup == nil {
		return
	}
	if err := s.dedup.Release(ctx, eventID); err != nil {
		logger.Using(ctx, s.logger).Warn("Failed to release webhook event id",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

func eventEntityKind(t integration.WebhookEventType) integration.EntityKind {
	switch t {
	case integration.EventOrderCreated, integration.EventOrderUpdated, integration.EventOrderPaid:
		return integration.EntityKindOrder
	case integration.EventCategoryCreated, integration.EventCategoryUpdated:
		return integration.EntityKindCategory
	default:
		return integration.EntityKindProduct
	}
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func (s *WebhookService) dispatch(ctx context.Context, event *integration.WebhookEvent) (outcome, error) {
	switch event.Type {
	case integration.EventProductCreated, integration.EventProductUpdated:
		id := event.RemoteProductID()
		return outcome{action: ActionLogged, message: fmt.Sprintf("Product %s changed on storefront", id), remoteID: id}, nil
	case integration.EventProductDeleted:
		return s.productDeleted(ctx, event)
	case integration.EventInventoryUpdated:
		id := event.RemoteProductID()
		msg := fmt.Sprintf("Inventory of product %s changed on storefront", id)
		if qty, ok := event.Quantity(); ok {
			msg = fmt.Sprintf("Inventory of product %s set to %s on storefront", id, qty.String())
		}
		return outcome{action: ActionLogged, message: msg, remoteID: id}, nil
	case integration.EventOrderCreated, integration.EventOrderUpdated:
		return s.orderReceived(ctx, event)
	case integration.EventOrderPaid:
		return s.orderPaid(ctx, event)
	case integration.EventCategoryCreated, integration.EventCategoryUpdated:
		return s.categoryChanged(ctx, event)
	default:
		return outcome{action: ActionIgnored, message: "Unhandled event type " + event.Type.String()}, nil
	}
}

// productDeleted clears the remote id of the mapped item so the next sync
// re-creates it
func (s *WebhookService) productDeleted(ctx context.Context, event *integration.WebhookEvent) (outcome, error) {
	remoteID := event.RemoteProductID()
	if remoteID == "" {
		return outcome{}, fmt.Errorf("%w: product id is missing", integration.ErrMalformedPayload)
	}
	m, err := s.mappings.FindByRemoteID(ctx, integration.EntityKindProduct, remoteID)
	if err != nil {
		return outcome{}, err
	}
	if m == nil {
		return outcome{action: ActionLogged, message: "Deleted product is not mapped", remoteID: remoteID}, nil
	}

	now := s.now()
	cleared, err := s.mappings.Update(ctx, m, func(m *integration.EntityMapping) bool {
		if m.RemoteID != remoteID {
			return false
		}
		m.MarkRemoteDeleted(now)
		return true
	})
	if err != nil {
		return outcome{}, fmt.Errorf("failed to save mapping: %w", err)
	}
	if !cleared {
		return outcome{action: ActionLogged, message: "Deleted product is no longer mapped", remoteID: remoteID}, nil
	}
	if s.writeBack != nil {
		err := s.writeBack.UpdateSyncFields(ctx, m.LocalID, "", integration.SyncStatusError, &now)
		if err != nil && !errors.Is(err, integration.ErrLocalEntityNotFound) {
			logger.Using(ctx, s.logger).Warn("Failed to write sync fields back to catalog",
				zap.String("local_id", m.LocalID),
				zap.Error(err),
			)
		}
	}
	return outcome{
		action:   ActionProcessed,
		message:  fmt.Sprintf("Product %s deleted on storefront, mapping of %s cleared", remoteID, m.LocalID),
		remoteID: remoteID,
	}, nil
}

func (s *WebhookService) orderReceived(ctx context.Context, event *integration.WebhookEvent) (outcome, error) {
	res, err := s.orders.Import(ctx, event.Data)
	if err != nil {
		return outcome{}, err
	}
	msg := fmt.Sprintf("Order %s already imported as %s", res.RemoteOrderID, res.LocalOrderID)
	if res.Created {
		msg = fmt.Sprintf("Order %s imported as %s", res.RemoteOrderID, res.LocalOrderID)
	}
	return outcome{action: ActionProcessed, message: msg, remoteID: res.RemoteOrderID}, nil
}

func (s *WebhookService) orderPaid(ctx context.Context, event *integration.WebhookEvent) (outcome, error) {
	res, err := s.orders.MarkPaid(ctx, event.Data)
	if errors.Is(err, integration.ErrOrderNotFound) {
		id := integration.InboundOrderID(event.Data)
		return outcome{action: ActionLogged, message: fmt.Sprintf("Paid order %s was never imported", id), remoteID: id}, nil
	}
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		action:   ActionProcessed,
		message:  fmt.Sprintf("Order %s marked paid", res.LocalOrderID),
		remoteID: res.RemoteOrderID,
	}, nil
}

// categoryChanged upserts the category mapping of a storefront collection.
// An unmapped collection is linked to the item group of the same name.
func (s *WebhookService) categoryChanged(ctx context.Context, event *integration.WebhookEvent) (outcome, error) {
	remoteID, name := event.Category()
	if remoteID == "" {
		return outcome{}, fmt.Errorf("%w: category id is missing", integration.ErrMalformedPayload)
	}
	now := s.now()

	cm, err := s.categories.FindByRemoteID(ctx, remoteID)
	switch {
	case err == nil:
	case errors.Is(err, integration.ErrCategoryMappingNotFound):
		cm, err = s.linkCategory(ctx, remoteID, name)
		if err != nil {
			return outcome{}, err
		}
		if cm == nil {
			return outcome{action: ActionLogged, message: fmt.Sprintf("Category %s matches no item group", remoteID), remoteID: remoteID}, nil
		}
	default:
		return outcome{}, err
	}

	if name != "" {
		cm.RemoteName = name
	}
	cm.RemoteID = remoteID
	cm.IsActive = true
	cm.LastSyncAt = &now
	cm.UpdatedAt = now
	if err := s.categories.Save(ctx, cm); err != nil {
		return outcome{}, fmt.Errorf("failed to save category mapping: %w", err)
	}
	return outcome{
		action:   ActionProcessed,
		message:  fmt.Sprintf("Category %s mapped to item group %s", remoteID, cm.ItemGroup),
		remoteID: remoteID,
	}, nil
}

func (s *WebhookService) linkCategory(ctx context.Context, remoteID, name string) (*integration.CategoryMapping, error) {
	if name == "" || s.groups == nil {
		return nil, nil
	}
	group, err := s.groups.FindByName(ctx, name)
	if errors.Is(err, integration.ErrLocalEntityNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cm, err := s.categories.FindByItemGroup(ctx, group.Name)
	if errors.Is(err, integration.ErrCategoryMappingNotFound) {
		return integration.NewCategoryMapping(group.Name, remoteID, name)
	}
	return cm, err
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

func (s *WebhookService) complete(ctx context.Context, d *delivery, out outcome) *WebhookResult {
	if out.remoteID != "" {
		d.remoteID = out.remoteID
	}
	status := integration.AuditStatusSuccess
	metric := telemetry.OutcomeSuccess
	if out.action == ActionDuplicate || out.action == ActionIgnored {
		status = integration.AuditStatusSkipped
		metric = telemetry.OutcomeSkipped
	}
	s.record(ctx, d, status, out.message, "")
	s.recordMetric(ctx, d, metric)

	logger.Using(ctx, s.logger).Info("Webhook handled",
		zap.String("event_type", d.eventType()),
		zap.String("event_id", d.entityRef),
		zap.String("action", out.action),
		zap.String("message", out.message),
	)
	return &WebhookResult{
		StatusCode: http.StatusOK,
		Success:    true,
		Message:    out.message,
		EventType:  d.eventType(),
		Action:     out.action,
	}
}

func (s *WebhookService) reject(ctx context.Context, d *delivery, code int, err error) *WebhookResult {
	s.record(ctx, d, integration.AuditStatusError, "Webhook rejected", err.Error())
	s.recordMetric(ctx, d, telemetry.OutcomeFailure)
	logger.Using(ctx, s.logger).Warn("Webhook rejected",
		zap.Int("status", code),
		zap.String("event_type", d.eventType()),
		zap.Error(err),
	)
	return &WebhookResult{
		StatusCode: code,
		Error:      err.Error(),
		EventType:  d.eventType(),
		Action:     ActionRejected,
	}
}

func (s *WebhookService) fail(ctx context.Context, d *delivery, code int, err error) *WebhookResult {
	s.record(ctx, d, integration.AuditStatusError, "Webhook processing failed", err.Error())
	s.recordMetric(ctx, d, telemetry.OutcomeFailure)
	logger.Using(ctx, s.logger).Error("Webhook processing failed",
		zap.String("event_type", d.eventType()),
		zap.String("event_id", d.entityRef),
		zap.Error(err),
	)
	return &WebhookResult{
		StatusCode: code,
		Error:      "Internal error while processing webhook",
		EventType:  d.eventType(),
		Action:     ActionFailed,
	}
}

func (s *WebhookService) record(ctx context.Context, d *delivery, status integration.AuditStatus, message, detail string) {
	msg := message
	if d.event != nil {
		msg = d.event.Type.String() + ": " + message
	}
	entry := integration.NewAuditLogEntry(integration.OperationWebhook, d.kind, d.entityRef, status).
		WithDirection(integration.SyncDirectionInbound).
		WithTrigger(integration.TriggerWebhook).
		WithRemoteID(d.remoteID).
		WithMessage(msg).
		WithRequest(d.req.Body).
		WithDuration(s.now().Sub(d.started))
	if detail != "" {
		entry.WithError(detail)
	}
	s.audit.Record(ctx, entry)
}

func (s *WebhookService) recordMetric(ctx context.Context, d *delivery, result string) {
	if s.metrics == nil {
		return
	}
	var t integration.WebhookEventType
	if d.event != nil {
		t = d.event.Type
	}
	s.metrics.RecordWebhook(ctx, t, result)
}

func (d *delivery) eventType() string {
	if d.event != nil {
		return d.event.Type.String()
	}
	return integration.NormalizeEventType(d.req.EventType).String()
}
