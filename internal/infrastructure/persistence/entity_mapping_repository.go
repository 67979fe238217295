package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEntityMappingRepository implements EntityMappingRepository using GORM
type GormEntityMappingRepository struct {
	db *gorm.DB
}

// NewGormEntityMappingRepository creates a new GormEntityMappingRepository
func NewGormEntityMappingRepository(db *gorm.DB) *GormEntityMappingRepository {
	return &GormEntityMappingRepository{db: db}
}

var _ integration.EntityMappingRepository = (*GormEntityMappingRepository)(nil)

// ---------------------------------------------------------------------------
// EntityMappingReader implementation
// ---------------------------------------------------------------------------

// FindByID finds a mapping by its ID
func (r *GormEntityMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.EntityMapping, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByLocalID finds the mapping for a local entity
func (r *GormEntityMappingRepository) FindByLocalID(ctx context.Context, kind integration.EntityKind, localID string) (*integration.EntityMapping, error) {
	return r.first(ctx, "kind = ? AND local_id = ?", kind, localID)
}

// FindByRemoteID finds the mapping for a storefront entity
func (r *GormEntityMappingRepository) FindByRemoteID(ctx context.Context, kind integration.EntityKind, remoteID string) (*integration.EntityMapping, error) {
	if remoteID == "" {
		return nil, integration.ErrMappingNotFound
	}
	return r.first(ctx, "kind = ? AND remote_id = ?", kind, remoteID)
}

func (r *GormEntityMappingRepository) first(ctx context.Context, query string, args ...any) (*integration.EntityMapping, error) {
	var model models.EntityMappingModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ---------------------------------------------------------------------------
// EntityMappingFinder implementation
// ---------------------------------------------------------------------------

// FindAll finds mappings matching the filter, most recently updated first
// unless the filter names a sort column
func (r *GormEntityMappingRepository) FindAll(ctx context.Context, filter integration.EntityMappingFilter) ([]integration.EntityMapping, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.EntityMappingModel{})
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if len(filter.LocalIDs) > 0 {
		query = query.Where("local_id IN ?", filter.LocalIDs)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.EntityMappingModel
	order := OrderClause(filter.OrderBy, filter.OrderDir, MappingSortFields, "updated_at")
	if err := paginate(query.Order(order), filter.Page, filter.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toMappings(rows), total, nil
}

// FindRetryDue finds failed mappings whose retry time has passed, oldest first
func (r *GormEntityMappingRepository) FindRetryDue(ctx context.Context, kind integration.EntityKind, now time.Time, limit int) ([]integration.EntityMapping, error) {
	var rows []models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND status = ? AND retries_exhausted = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?",
			kind, integration.SyncStatusError, false, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMappings(rows), nil
}

// FindStalePending finds mappings that have been pending since before cutoff
func (r *GormEntityMappingRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]integration.EntityMapping, error) {
	var rows []models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", integration.SyncStatusPending).
		Where("(claimed_at IS NOT NULL AND claimed_at < ?) OR (claimed_at IS NULL AND updated_at < ?)", cutoff, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMappings(rows), nil
}

// FindSynced finds enabled mappings with a remote counterpart, least recently synced first
func (r *GormEntityMappingRepository) FindSynced(ctx context.Context, kind integration.EntityKind, limit int) ([]integration.EntityMapping, error) {
	var rows []models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND remote_id <> '' AND status <> ?", kind, integration.SyncStatusDisabled).
		Order("last_sync_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toMappings(rows), nil
}

// CountByStatus counts mappings of a kind grouped by status
func (r *GormEntityMappingRepository) CountByStatus(ctx context.Context, kind integration.EntityKind) (map[integration.SyncStatus]int64, error) {
	var rows []struct {
		Status integration.SyncStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.EntityMappingModel{}).
		Select("status, COUNT(*) AS count").
		Where("kind = ?", kind).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[integration.SyncStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// EntityMappingWriter implementation
// ---------------------------------------------------------------------------

// Create inserts a new mapping
func (r *GormEntityMappingRepository) Create(ctx context.Context, mapping *integration.EntityMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	model := models.EntityMappingModelFromDomain(mapping)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return integration.ErrMappingAlreadyExists
		}
		return err
	}
	return nil
}

// Save persists every field of an existing mapping. The row is only written
// while its version still matches the one the caller read.
func (r *GormEntityMappingRepository) Save(ctx context.Context, mapping *integration.EntityMapping) error {
	model := models.EntityMappingModelFromDomain(mapping)
	model.Version = mapping.Version + 1
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.EntityMappingModel{}).
			Where("id = ? AND version = ?", model.ID, mapping.Version).
			Select("*").
			Omit("id", "created_at").
			Updates(model)
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return integration.ErrMappingAlreadyExists
			}
			return result.Error
		}
		if result.RowsAffected == 1 {
			return nil
		}

		var count int64
		if err := tx.Model(&models.EntityMappingModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return integration.ErrMappingNotFound
		}
		return integration.ErrMappingConflict
	})
	if err != nil {
		return err
	}
	mapping.Version = model.Version
	return nil
}

// Claim moves a mapping to Pending unless it is Pending or Disabled. The
// conditional update is the only synchronisation between workers.
func (r *GormEntityMappingRepository) Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.EntityMappingModel{}).
		Where("id = ? AND status NOT IN ?", id, []integration.SyncStatus{integration.SyncStatusPending, integration.SyncStatusDisabled}).
		Updates(map[string]any{
			"status":     integration.SyncStatusPending,
			"claimed_at": at,
			"updated_at": at,
			"version":    gorm.Expr("version + ?", 1),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func toMappings(rows []models.EntityMappingModel) []integration.EntityMapping {
	mappings := make([]integration.EntityMapping, len(rows))
	for i := range rows {
		mappings[i] = *rows[i].ToDomain()
	}
	return mappings
}
