package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
)

// OrderService turns storefront orders into local sales orders. An ORDER
// mapping links each remote order id to the local order number, so repeated
// deliveries of the same order never create a second sales order.
type OrderService struct {
	orders   integration.OrderWriter
	catalog  integration.CatalogReader
	mappings *MappingService
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates an order service
func NewOrderService(orders integration.OrderWriter, catalog integration.CatalogReader, mappings *MappingService, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:   orders,
		catalog:  catalog,
		mappings: mappings,
		logger:   logger.Named("orders"),
		now:      time.Now,
	}
}

// ImportResult is the outcome of an order import
type ImportResult struct {
	LocalOrderID  string
	RemoteOrderID string
	Created       bool
	Paid          bool
}

// Import creates the sales order for an order event. An order that was
// already imported is returned as is, with payment applied when the event
// reports it paid.
func (s *OrderService) Import(ctx context.Context, data map[string]any) (*ImportResult, error) {
	order, err := integration.ParseInboundOrder(data)
	if err != nil {
		return nil, err
	}
	return s.importOrder(ctx, order)
}

// pendingOrderPrefix marks the local id of an order mapping whose sales
// order is not created yet
const pendingOrderPrefix = "pending:"

func isPendingOrder(m *integration.EntityMapping) bool {
	return strings.HasPrefix(m.LocalID, pendingOrderPrefix)
}

func (s *OrderService) importOrder(ctx context.Context, order *integration.InboundOrder) (*ImportResult, error) {
	existing, err := s.mappings.FindByRemoteID(ctx, integration.EntityKindOrder, order.RemoteOrderID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !isPendingOrder(existing) {
		return s.alreadyImported(ctx, existing, order)
	}

	if err := s.resolveLines(ctx, order); err != nil {
		return nil, err
	}
	m, err := s.reserve(ctx, order, existing)
	if err != nil {
		return nil, err
	}
	if !isPendingOrder(m) {
		return s.alreadyImported(ctx, m, order)
	}

	localID, err := s.orders.CreateSalesOrder(ctx, order)
	if err != nil {
		s.releaseFailed(ctx, m, err)
		return nil, fmt.Errorf("failed to create sales order: %w", err)
	}
	now := s.now()
	if _, err := s.mappings.Update(ctx, m, func(m *integration.EntityMapping) bool {
		m.LocalID = localID
		m.RecordSuccess(order.RemoteOrderID, now)
		return true
	}); err != nil {
		s.logger.Error("Sales order created but not linked to the storefront order",
			zap.String("remote_order_id", order.RemoteOrderID),
			zap.String("local_order_id", localID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to link order: %w", err)
	}
	if order.Paid {
		if err := s.orders.MarkPaid(ctx, localID, now); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Storefront order imported",
		zap.String("remote_order_id", order.RemoteOrderID),
		zap.String("local_order_id", localID),
		zap.Int("lines", len(order.Lines)),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Bool("paid", order.Paid),
	)
	return &ImportResult{LocalOrderID: localID, RemoteOrderID: order.RemoteOrderID, Created: true, Paid: order.Paid}, nil
}

// reserve holds the order mapping for this delivery before the sales order
// is created. The unique remote id makes a concurrent delivery of the same
// order fail here with ErrSyncInProgress. A reservation left by a failed
// import is claimed again.
func (s *OrderService) reserve(ctx context.Context, order *integration.InboundOrder, m *integration.EntityMapping) (*integration.EntityMapping, error) {
	if m == nil {
		created, err := integration.NewEntityMapping(integration.EntityKindOrder, pendingOrderPrefix+order.RemoteOrderID)
		if err != nil {
			return nil, err
		}
		created.Direction = integration.SyncDirectionInbound
		created.RemoteID = order.RemoteOrderID
		created.RemoteName = order.Number
		created.MarkPending(s.now())
		err = s.mappings.Create(ctx, created)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, integration.ErrMappingAlreadyExists) {
			return nil, fmt.Errorf("failed to reserve order: %w", err)
		}
		if m, err = s.mappings.FindByRemoteID(ctx, integration.EntityKindOrder, order.RemoteOrderID); err != nil {
			return nil, err
		}
		if m == nil {
			return nil, integration.ErrSyncInProgress
		}
		if !isPendingOrder(m) {
			return m, nil
		}
	}

	if err := s.mappings.ClaimForSync(ctx, m); err != nil {
		return nil, err
	}
	if !isPendingOrder(m) {
		// Imported by another delivery between the read and the claim
		now := s.now()
		if _, err := s.mappings.Update(ctx, m, func(m *integration.EntityMapping) bool {
			m.Status = integration.SyncStatusSynced
			m.ClaimedAt = nil
			m.UpdatedAt = now
			return true
		}); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// releaseFailed records the failed attempt so the next delivery can claim
// the reservation again
func (s *OrderService) releaseFailed(ctx context.Context, m *integration.EntityMapping, cause error) {
	now := s.now()
	if _, err := s.mappings.Update(ctx, m, func(m *integration.EntityMapping) bool {
		m.RecordFailure(cause.Error(), now)
		return true
	}); err != nil {
		s.logger.Warn("Failed to release order reservation",
			zap.String("remote_order_id", m.RemoteID),
			zap.Error(err),
		)
	}
}

func (s *OrderService) alreadyImported(ctx context.Context, m *integration.EntityMapping, order *integration.InboundOrder) (*ImportResult, error) {
	result := &ImportResult{LocalOrderID: m.LocalID, RemoteOrderID: order.RemoteOrderID}
	if order.Paid {
		if err := s.orders.MarkPaid(ctx, m.LocalID, s.now()); err != nil {
			return nil, err
		}
		result.Paid = true
	}
	return result, nil
}

// MarkPaid records payment of an imported order. When the order was never
// imported and the event carries the full order, it is imported paid.
func (s *OrderService) MarkPaid(ctx context.Context, data map[string]any) (*ImportResult, error) {
	remoteID := integration.InboundOrderID(data)
	if remoteID == "" {
		return nil, fmt.Errorf("%w: order id is missing", integration.ErrInvalidInboundOrder)
	}

	existing, err := s.mappings.FindByRemoteID(ctx, integration.EntityKindOrder, remoteID)
	if err != nil {
		return nil, err
	}
	if existing == nil || isPendingOrder(existing) {
		order, err := integration.ParseInboundOrder(data)
		if err != nil {
			return nil, integration.ErrOrderNotFound
		}
		order.Paid = true
		return s.importOrder(ctx, order)
	}

	if err := s.orders.MarkPaid(ctx, existing.LocalID, s.now()); err != nil {
		return nil, err
	}
	s.logger.Info("Storefront order paid",
		zap.String("remote_order_id", remoteID),
		zap.String("local_order_id", existing.LocalID),
	)
	return &ImportResult{LocalOrderID: existing.LocalID, RemoteOrderID: remoteID, Paid: true}, nil
}

// resolveLines finds the local item of each line, first through the product
// mapping of the remote product, then by SKU, then by barcode
func (s *OrderService) resolveLines(ctx context.Context, order *integration.InboundOrder) error {
	for i := range order.Lines {
		line := &order.Lines[i]
		code, err := s.resolveItem(ctx, line)
		if err != nil {
			return err
		}
		if code == "" {
			return fmt.Errorf("%w: line %q of order %s matches no local item", integration.ErrInvalidInboundOrder, line.Name, order.RemoteOrderID)
		}
		line.ItemCode = code
	}
	return nil
}

func (s *OrderService) resolveItem(ctx context.Context, line *integration.InboundOrderLine) (string, error) {
	if line.RemoteProductID != "" {
		m, err := s.mappings.FindByRemoteID(ctx, integration.EntityKindProduct, line.RemoteProductID)
		if err != nil {
			return "", err
		}
		if m != nil {
			return m.LocalID, nil
		}
	}
	if line.SKU != "" {
		ok, err := s.catalog.ExistsByCode(ctx, line.SKU)
		if err != nil {
			return "", err
		}
		if ok {
			return line.SKU, nil
		}
		item, err := s.catalog.FindByBarcode(ctx, line.SKU)
		switch {
		case err == nil:
			return item.Code, nil
		case !errors.Is(err, integration.ErrLocalEntityNotFound):
			return "", err
		}
	}
	return "", nil
}
