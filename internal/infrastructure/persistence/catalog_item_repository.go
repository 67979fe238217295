package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCatalogRepository reads the ERP catalog: items, price lists and item
// groups. The only write is the remote reference side channel.
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

var (
	_ integration.CatalogReader         = (*GormCatalogRepository)(nil)
	_ integration.CatalogWriter         = (*GormCatalogRepository)(nil)
	_ integration.RemoteReferenceReader = (*GormCatalogRepository)(nil)
	_ integration.PriceListReader       = (*GormCatalogRepository)(nil)
	_ integration.ItemGroupReader       = (*GormCatalogRepository)(nil)
)

// FindByCode finds an item by its code
func (r *GormCatalogRepository) FindByCode(ctx context.Context, code string) (*integration.CatalogItem, error) {
	return r.firstItem(ctx, "code = ?", code)
}

// FindByBarcode finds an item by barcode
func (r *GormCatalogRepository) FindByBarcode(ctx context.Context, barcode string) (*integration.CatalogItem, error) {
	if barcode == "" {
		return nil, integration.ErrLocalEntityNotFound
	}
	return r.firstItem(ctx, "barcode = ?", barcode)
}

func (r *GormCatalogRepository) firstItem(ctx context.Context, query string, args ...any) (*integration.CatalogItem, error) {
	var model models.CatalogItemModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrLocalEntityNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsByCode checks if an item exists
func (r *GormCatalogRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CatalogItemModel{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindUnsynced lists enabled sellable items without a remote id
func (r *GormCatalogRepository) FindUnsynced(ctx context.Context, limit int) ([]integration.CatalogItem, error) {
	var rows []models.CatalogItemModel
	if err := r.db.WithContext(ctx).
		Where("disabled = ? AND has_variants = ?", false, false).
		Where("is_sales_item = ? OR is_stock_item = ?", true, true).
		Where("storefront_remote_id IS NULL OR storefront_remote_id = ''").
		Order("modified_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]integration.CatalogItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

// FindWithRemoteID pages through items whose side channel holds a remote id,
// keyed on code
func (r *GormCatalogRepository) FindWithRemoteID(ctx context.Context, afterCode string, limit int) ([]integration.CatalogItem, error) {
	var rows []models.CatalogItemModel
	if err := r.db.WithContext(ctx).
		Where("storefront_remote_id IS NOT NULL AND storefront_remote_id <> ''").
		Where("code > ?", afterCode).
		Order("code ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]integration.CatalogItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

// UpdateSyncFields writes the remote reference columns without touching
// modified_at, so the write does not look like a local edit
func (r *GormCatalogRepository) UpdateSyncFields(ctx context.Context, code string, remoteID string, status integration.SyncStatus, lastSyncAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.CatalogItemModel{}).
		Where("code = ?", code).
		UpdateColumns(map[string]any{
			"storefront_remote_id":    remoteID,
			"storefront_sync_status":  status,
			"storefront_last_sync_at": lastSyncAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrLocalEntityNotFound
	}
	return nil
}

// FindItemPrice returns the rate of an item on a price list
func (r *GormCatalogRepository) FindItemPrice(ctx context.Context, priceList string, code string) (decimal.Decimal, bool, error) {
	if priceList == "" {
		return decimal.Zero, false, nil
	}
	var model models.ItemPriceModel
	if err := r.db.WithContext(ctx).
		Where("price_list = ? AND item_code = ?", priceList, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return model.Rate, true, nil
}

// FindByName finds an item group
func (r *GormCatalogRepository) FindByName(ctx context.Context, name string) (*integration.ItemGroup, error) {
	var model models.ItemGroupModel
	if err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrLocalEntityNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
