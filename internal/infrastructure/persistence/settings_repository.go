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

// GormSettingsRepository stores the single settings row
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

var _ integration.SettingsRepository = (*GormSettingsRepository)(nil)

// Load returns the stored settings
func (r *GormSettingsRepository) Load(ctx context.Context) (*integration.Settings, error) {
	var model models.SettingsModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", models.SettingsSingletonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSettingsNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save inserts or replaces the settings row
func (r *GormSettingsRepository) Save(ctx context.Context, settings *integration.Settings) error {
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now()
	}
	model := models.SettingsModelFromDomain(settings)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}
