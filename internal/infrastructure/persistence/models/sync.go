package models

import (
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/google/uuid"
)

// EntityMappingModel is the persistence model for the EntityMapping domain entity.
type EntityMappingModel struct {
	ID               uuid.UUID                 `gorm:"type:uuid;primary_key"`
	Kind             integration.EntityKind    `gorm:"type:varchar(20);not null;uniqueIndex:idx_entity_mapping_kind_local,priority:1;uniqueIndex:idx_entity_mapping_kind_remote,priority:1"`
	LocalID          string                    `gorm:"type:varchar(140);not null;uniqueIndex:idx_entity_mapping_kind_local,priority:2"`
	RemoteID         string                    `gorm:"type:varchar(100);uniqueIndex:idx_entity_mapping_kind_remote,priority:2,where:remote_id IS NOT NULL AND remote_id <> ''"`
	RemoteName       string                    `gorm:"type:varchar(255)"`
	RemoteSlug       string                    `gorm:"type:varchar(255)"`
	Status           integration.SyncStatus    `gorm:"type:varchar(20);not null;default:'NOT_SYNCED';index"`
	Direction        integration.SyncDirection `gorm:"type:varchar(30);not null"`
	LastSyncAt       *time.Time
	LastError        string     `gorm:"type:text"`
	ErrorHistory     string     `gorm:"type:text"`
	TotalSyncs       int        `gorm:"not null;default:0"`
	SuccessfulSyncs  int        `gorm:"not null;default:0"`
	FailedSyncs      int        `gorm:"not null;default:0"`
	RetryCount       int        `gorm:"not null;default:0"`
	NextRetryAt      *time.Time `gorm:"index"`
	RetriesExhausted bool       `gorm:"not null;default:false"`
	ClaimedAt        *time.Time
	Version          int       `gorm:"not null;default:0"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityMappingModel) TableName() string {
	return "entity_mappings"
}

// ToDomain converts the persistence model to a domain EntityMapping entity.
func (m *EntityMappingModel) ToDomain() *integration.EntityMapping {
	return &integration.EntityMapping{
		ID:               m.ID,
		Kind:             m.Kind,
		LocalID:          m.LocalID,
		RemoteID:         m.RemoteID,
		RemoteName:       m.RemoteName,
		RemoteSlug:       m.RemoteSlug,
		Status:           m.Status,
		Direction:        m.Direction,
		LastSyncAt:       m.LastSyncAt,
		LastError:        m.LastError,
		ErrorHistory:     m.ErrorHistory,
		TotalSyncs:       m.TotalSyncs,
		SuccessfulSyncs:  m.SuccessfulSyncs,
		FailedSyncs:      m.FailedSyncs,
		RetryCount:       m.RetryCount,
		NextRetryAt:      m.NextRetryAt,
		RetriesExhausted: m.RetriesExhausted,
		ClaimedAt:        m.ClaimedAt,
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain EntityMapping entity.
func (m *EntityMappingModel) FromDomain(e *integration.EntityMapping) {
	m.ID = e.ID
	m.Kind = e.Kind
	m.LocalID = e.LocalID
	m.RemoteID = e.RemoteID
	m.RemoteName = e.RemoteName
	m.RemoteSlug = e.RemoteSlug
	m.Status = e.Status
	m.Direction = e.Direction
	m.LastSyncAt = e.LastSyncAt
	m.LastError = e.LastError
	m.ErrorHistory = e.ErrorHistory
	m.TotalSyncs = e.TotalSyncs
	m.SuccessfulSyncs = e.SuccessfulSyncs
	m.FailedSyncs = e.FailedSyncs
	m.RetryCount = e.RetryCount
	m.NextRetryAt = e.NextRetryAt
	m.RetriesExhausted = e.RetriesExhausted
	m.ClaimedAt = e.ClaimedAt
	m.Version = e.Version
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// EntityMappingModelFromDomain creates a new persistence model from a domain EntityMapping entity.
func EntityMappingModelFromDomain(e *integration.EntityMapping) *EntityMappingModel {
	m := &EntityMappingModel{}
	m.FromDomain(e)
	return m
}

// AuditLogModel is the persistence model for AuditLogEntry. Rows are
// insert-only.
type AuditLogModel struct {
	ID              uuid.UUID                 `gorm:"type:uuid;primary_key"`
	Operation       integration.OperationType `gorm:"type:varchar(30);not null;index"`
	EntityKind      integration.EntityKind    `gorm:"type:varchar(20)"`
	EntityRef       string                    `gorm:"type:varchar(140);index"`
	RemoteID        string                    `gorm:"type:varchar(100)"`
	Direction       integration.SyncDirection `gorm:"type:varchar(30)"`
	Status          integration.AuditStatus   `gorm:"type:varchar(20);not null;index:idx_audit_log_status_created,priority:1"`
	Trigger         integration.TriggerType   `gorm:"column:trigger_type;type:varchar(20)"`
	Message         string                    `gorm:"type:text"`
	RequestPayload  string                    `gorm:"type:text"`
	ResponsePayload string                    `gorm:"type:text"`
	ErrorDetail     string                    `gorm:"type:text"`
	DurationMs      int64                     `gorm:"not null;default:0"`
	CreatedAt       time.Time                 `gorm:"not null;index:idx_audit_log_status_created,priority:2"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "sync_audit_logs"
}

// ToDomain converts the persistence model to a domain AuditLogEntry.
func (m *AuditLogModel) ToDomain() *integration.AuditLogEntry {
	return &integration.AuditLogEntry{
		ID:              m.ID,
		Operation:       m.Operation,
		EntityKind:      m.EntityKind,
		EntityRef:       m.EntityRef,
		RemoteID:        m.RemoteID,
		Direction:       m.Direction,
		Status:          m.Status,
		Trigger:         m.Trigger,
		Message:         m.Message,
		RequestPayload:  m.RequestPayload,
		ResponsePayload: m.ResponsePayload,
		ErrorDetail:     m.ErrorDetail,
		Duration:        time.Duration(m.DurationMs) * time.Millisecond,
		CreatedAt:       m.CreatedAt,
	}
}

// AuditLogModelFromDomain creates a new persistence model from a domain AuditLogEntry.
func AuditLogModelFromDomain(e *integration.AuditLogEntry) *AuditLogModel {
	return &AuditLogModel{
		ID:              e.ID,
		Operation:       e.Operation,
		EntityKind:      e.EntityKind,
		EntityRef:       e.EntityRef,
		RemoteID:        e.RemoteID,
		Direction:       e.Direction,
		Status:          e.Status,
		Trigger:         e.Trigger,
		Message:         e.Message,
		RequestPayload:  e.RequestPayload,
		ResponsePayload: e.ResponsePayload,
		ErrorDetail:     e.ErrorDetail,
		DurationMs:      e.Duration.Milliseconds(),
		CreatedAt:       e.CreatedAt,
	}
}

// SettingsSingletonID is the primary key of the only settings row
const SettingsSingletonID = 1

// SettingsModel stores the integration settings as a single row.
// Durations are stored in whole seconds.
type SettingsModel struct {
	ID       int  `gorm:"primaryKey;autoIncrement:false"`
	Enabled  bool `gorm:"not null;default:false"`
	TestMode bool `gorm:"not null;default:false"`

	APIBaseURL  string `gorm:"type:varchar(500)"`
	SiteBaseURL string `gorm:"type:varchar(500)"`
	SiteID      string `gorm:"type:varchar(100)"`
	AccountID   string `gorm:"type:varchar(100)"`
	APIKey      string `gorm:"type:text"`

	SyncDescription bool `gorm:"not null"`
	SyncPrice       bool `gorm:"not null"`
	SyncImages      bool `gorm:"not null"`
	SyncInventory   bool `gorm:"not null"`
	SyncCategories  bool `gorm:"not null"`
	SyncBrand       bool `gorm:"not null"`
	SyncWeight      bool `gorm:"not null"`

	AutoSyncItems     bool `gorm:"not null"`
	AutoSyncInventory bool `gorm:"not null"`

	RetryAttempts         int   `gorm:"not null"`
	RetryBaseDelaySeconds int64 `gorm:"not null"`
	MaxRetryDelaySeconds  int64 `gorm:"not null"`
	TimeoutSeconds        int   `gorm:"not null"`

	WebhookSecret         string `gorm:"type:varchar(255)"`
	AllowUnsignedWebhooks bool   `gorm:"not null"`

	DefaultPriceList string `gorm:"type:varchar(140)"`
	DefaultWarehouse string `gorm:"type:varchar(140)"`
	DefaultCurrency  string `gorm:"type:varchar(3)"`

	BulkBatchSize        int   `gorm:"not null"`
	BulkItemDelaySeconds int64 `gorm:"not null"`

	VerifyRemoteBeforeUpdate bool `gorm:"not null"`

	SuccessRetentionDays int `gorm:"not null"`
	ErrorRetentionDays   int `gorm:"not null"`

	LastHealthCheckAt *time.Time
	LastHealthStatus  string `gorm:"type:varchar(20)"`
	LastHealthMessage string `gorm:"type:text"`

	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SettingsModel) TableName() string {
	return "storefront_settings"
}

const day = 24 * time.Hour

// ToDomain converts the row to domain Settings
func (m *SettingsModel) ToDomain() *integration.Settings {
	return &integration.Settings{
		Enabled:                  m.Enabled,
		TestMode:                 m.TestMode,
		APIBaseURL:               m.APIBaseURL,
		SiteBaseURL:              m.SiteBaseURL,
		SiteID:                   m.SiteID,
		AccountID:                m.AccountID,
		APIKey:                   m.APIKey,
		SyncDescription:          m.SyncDescription,
		SyncPrice:                m.SyncPrice,
		SyncImages:               m.SyncImages,
		SyncInventory:            m.SyncInventory,
		SyncCategories:           m.SyncCategories,
		SyncBrand:                m.SyncBrand,
		SyncWeight:               m.SyncWeight,
		AutoSyncItems:            m.AutoSyncItems,
		AutoSyncInventory:        m.AutoSyncInventory,
		RetryAttempts:            m.RetryAttempts,
		RetryBaseDelay:           time.Duration(m.RetryBaseDelaySeconds) * time.Second,
		MaxRetryDelay:            time.Duration(m.MaxRetryDelaySeconds) * time.Second,
		TimeoutSeconds:           m.TimeoutSeconds,
		WebhookSecret:            m.WebhookSecret,
		AllowUnsignedWebhooks:    m.AllowUnsignedWebhooks,
		DefaultPriceList:         m.DefaultPriceList,
		DefaultWarehouse:         m.DefaultWarehouse,
		DefaultCurrency:          m.DefaultCurrency,
		BulkBatchSize:            m.BulkBatchSize,
		BulkItemDelay:            time.Duration(m.BulkItemDelaySeconds) * time.Second,
		VerifyRemoteBeforeUpdate: m.VerifyRemoteBeforeUpdate,
		SuccessRetention:         time.Duration(m.SuccessRetentionDays) * day,
		ErrorRetention:           time.Duration(m.ErrorRetentionDays) * day,
		LastHealthCheckAt:        m.LastHealthCheckAt,
		LastHealthStatus:         m.LastHealthStatus,
		LastHealthMessage:        m.LastHealthMessage,
		UpdatedAt:                m.UpdatedAt,
	}
}

// SettingsModelFromDomain creates the singleton row from domain Settings
func SettingsModelFromDomain(s *integration.Settings) *SettingsModel {
	return &SettingsModel{
		ID:                       SettingsSingletonID,
		Enabled:                  s.Enabled,
		TestMode:                 s.TestMode,
		APIBaseURL:               s.APIBaseURL,
		SiteBaseURL:              s.SiteBaseURL,
		SiteID:                   s.SiteID,
		AccountID:                s.AccountID,
		APIKey:                   s.APIKey,
		SyncDescription:          s.SyncDescription,
		SyncPrice:                s.SyncPrice,
		SyncImages:               s.SyncImages,
		SyncInventory:            s.SyncInventory,
		SyncCategories:           s.SyncCategories,
		SyncBrand:                s.SyncBrand,
		SyncWeight:               s.SyncWeight,
		AutoSyncItems:            s.AutoSyncItems,
		AutoSyncInventory:        s.AutoSyncInventory,
		RetryAttempts:            s.RetryAttempts,
		RetryBaseDelaySeconds:    int64(s.RetryBaseDelay / time.Second),
		MaxRetryDelaySeconds:     int64(s.MaxRetryDelay / time.Second),
		TimeoutSeconds:           s.TimeoutSeconds,
		WebhookSecret:            s.WebhookSecret,
		AllowUnsignedWebhooks:    s.AllowUnsignedWebhooks,
		DefaultPriceList:         s.DefaultPriceList,
		DefaultWarehouse:         s.DefaultWarehouse,
		DefaultCurrency:          s.DefaultCurrency,
		BulkBatchSize:            s.BulkBatchSize,
		BulkItemDelaySeconds:     int64(s.BulkItemDelay / time.Second),
		VerifyRemoteBeforeUpdate: s.VerifyRemoteBeforeUpdate,
		SuccessRetentionDays:     int(s.SuccessRetention / day),
		ErrorRetentionDays:       int(s.ErrorRetention / day),
		LastHealthCheckAt:        s.LastHealthCheckAt,
		LastHealthStatus:         s.LastHealthStatus,
		LastHealthMessage:        s.LastHealthMessage,
		UpdatedAt:                s.UpdatedAt,
	}
}
