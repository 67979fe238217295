package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// storefrontOrderPrefix marks sales orders created from the storefront
const storefrontOrderPrefix = "SO-WEB"

// GormSalesOrderRepository creates ERP sales orders from storefront orders
type GormSalesOrderRepository struct {
	db *gorm.DB
}

// NewGormSalesOrderRepository creates a new GormSalesOrderRepository
func NewGormSalesOrderRepository(db *gorm.DB) *GormSalesOrderRepository {
	return &GormSalesOrderRepository{db: db}
}

var _ integration.OrderWriter = (*GormSalesOrderRepository)(nil)

// CreateSalesOrder stores the order with its lines and returns the order
// number. A repeated remote order id returns the existing order number.
func (r *GormSalesOrderRepository) CreateSalesOrder(ctx context.Context, order *integration.InboundOrder) (string, error) {
	var orderNumber string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.SalesOrderModel
		err := tx.Where("remote_order_id = ?", order.RemoteOrderID).First(&existing).Error
		if err == nil {
			orderNumber = existing.OrderNumber
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		number, err := r.generateOrderNumber(tx, time.Now())
		if err != nil {
			return err
		}
		model := models.SalesOrderModelFromInbound(order, number, time.Now())
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		orderNumber = number
		return nil
	})
	if err != nil {
		return "", err
	}
	return orderNumber, nil
}

// MarkPaid records payment on an order identified by its order number
func (r *GormSalesOrderRepository) MarkPaid(ctx context.Context, localOrderID string, paidAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.SalesOrderModel{}).
		Where("order_number = ?", localOrderID).
		Updates(map[string]any{"paid": true, "paid_at": paidAt, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrOrderNotFound
	}
	return nil
}

// FindByRemoteOrderID returns the order number of a storefront order
func (r *GormSalesOrderRepository) FindByRemoteOrderID(ctx context.Context, remoteOrderID string) (string, uuid.UUID, error) {
	var model models.SalesOrderModel
	if err := r.db.WithContext(ctx).Where("remote_order_id = ?", remoteOrderID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", uuid.Nil, integration.ErrOrderNotFound
		}
		return "", uuid.Nil, err
	}
	return model.OrderNumber, model.ID, nil
}

// generateOrderNumber returns the next number of the form SO-WEB-<year>-<seq>
func (r *GormSalesOrderRepository) generateOrderNumber(tx *gorm.DB, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", storefrontOrderPrefix, now.Year())

	var last models.SalesOrderModel
	err := tx.Model(&models.SalesOrderModel{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var next int64 = 1
	if err == nil {
		var num int64
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(last.OrderNumber, prefix), "%d", &num); scanErr == nil {
			next = num + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, next), nil
}
