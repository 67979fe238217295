package persistence

import (
	"context"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditLogRepository implements AuditLogRepository using GORM
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

var _ integration.AuditLogRepository = (*GormAuditLogRepository)(nil)

// Append stores a new entry
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *integration.AuditLogEntry) error {
	entry.Enforce()
	return r.db.WithContext(ctx).Create(models.AuditLogModelFromDomain(entry)).Error
}

// FindAll lists entries newest first
func (r *GormAuditLogRepository) FindAll(ctx context.Context, filter integration.AuditLogFilter) ([]integration.AuditLogEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{})
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EntityKind != "" {
		query = query.Where("entity_kind = ?", filter.EntityKind)
	}
	if filter.EntityRef != "" {
		query = query.Where("entity_ref = ?", filter.EntityRef)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AuditLogModel
	if err := paginate(query.Order("created_at DESC"), filter.Page, filter.PageSize).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]integration.AuditLogEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, total, nil
}

// PurgeBefore deletes entries with the given status created before cutoff
func (r *GormAuditLogRepository) PurgeBefore(ctx context.Context, status integration.AuditStatus, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, cutoff).
		Delete(&models.AuditLogModel{})
	return result.RowsAffected, result.Error
}

// Stats aggregates entries created since the given time
func (r *GormAuditLogRepository) Stats(ctx context.Context, since time.Time, topErrors int) (*integration.AuditStats, error) {
	stats := &integration.AuditStats{
		Since:       since,
		ByStatus:    make(map[integration.AuditStatus]int64),
		ByOperation: make(map[integration.OperationType]int64),
	}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.AuditLogModel{}).Where("created_at >= ?", since)
	}

	var byStatus []struct {
		Status integration.AuditStatus
		Count  int64
	}
	if err := base().Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	var byOperation []struct {
		Operation integration.OperationType
		Count     int64
	}
	if err := base().Select("operation, COUNT(*) AS count").Group("operation").Scan(&byOperation).Error; err != nil {
		return nil, err
	}
	for _, row := range byOperation {
		stats.ByOperation[row.Operation] = row.Count
	}

	if topErrors > 0 {
		var errs []struct {
			ErrorDetail string
			Count       int64
		}
		if err := base().
			Select("error_detail, COUNT(*) AS count").
			Where("status = ? AND error_detail <> ''", integration.AuditStatusError).
			Group("error_detail").
			Order("count DESC").
			Limit(topErrors).
			Scan(&errs).Error; err != nil {
			return nil, err
		}
		for _, e := range errs {
			stats.TopErrors = append(stats.TopErrors, integration.ErrorCount{Message: e.ErrorDetail, Count: e.Count})
		}
	}

	if stats.Total > 0 {
		var avg struct{ Avg float64 }
		if err := base().Select("COALESCE(AVG(duration_ms), 0) AS avg").Scan(&avg).Error; err != nil {
			return nil, err
		}
		stats.AvgDuration = time.Duration(avg.Avg * float64(time.Millisecond))
	}
	return stats, nil
}
