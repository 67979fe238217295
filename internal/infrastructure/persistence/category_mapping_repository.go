package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCategoryMappingRepository implements CategoryMappingRepository using GORM
type GormCategoryMappingRepository struct {
	db *gorm.DB
}

// NewGormCategoryMappingRepository creates a new GormCategoryMappingRepository
func NewGormCategoryMappingRepository(db *gorm.DB) *GormCategoryMappingRepository {
	return &GormCategoryMappingRepository{db: db}
}

var _ integration.CategoryMappingRepository = (*GormCategoryMappingRepository)(nil)

// FindByItemGroup finds the mapping of an item group
func (r *GormCategoryMappingRepository) FindByItemGroup(ctx context.Context, itemGroup string) (*integration.CategoryMapping, error) {
	return r.first(ctx, "item_group = ?", itemGroup)
}

// FindByRemoteID finds the mapping of a storefront collection
func (r *GormCategoryMappingRepository) FindByRemoteID(ctx context.Context, remoteID string) (*integration.CategoryMapping, error) {
	return r.first(ctx, "remote_id = ?", remoteID)
}

func (r *GormCategoryMappingRepository) first(ctx context.Context, query string, args ...any) (*integration.CategoryMapping, error) {
	var model models.CategoryMappingModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCategoryMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts or updates the mapping keyed by item group
func (r *GormCategoryMappingRepository) Save(ctx context.Context, mapping *integration.CategoryMapping) error {
	mapping.UpdatedAt = time.Now()
	model := models.CategoryMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_group"}},
			DoUpdates: clause.AssignmentColumns([]string{"remote_id", "remote_name", "is_active", "last_sync_at", "updated_at"}),
		}).
		Create(model).Error
}
