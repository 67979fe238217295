package dto

import (
	"time"

	"github.com/erp/storesync/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Sync requests
// ---------------------------------------------------------------------------

// SyncEntityRequest is the optional body of a single sync trigger
type SyncEntityRequest struct {
	// Async queues the sync instead of running it inline
	Async bool `json:"async"`
}

// BulkSyncRequest lists the catalog items to sync
type BulkSyncRequest struct {
	LocalIDs []string `json:"local_ids" binding:"required,min=1,max=1000,dive,required,max=140"`
	Async    bool     `json:"async"`
}

// QueuedResponse acknowledges a task handed to the queue
type QueuedResponse struct {
	TaskID  string `json:"task_id"`
	Type    string `json:"type"`
	LocalID string `json:"local_id,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// ---------------------------------------------------------------------------
// Audit log and report queries
// ---------------------------------------------------------------------------

// AuditLogQuery filters the audit log listing
type AuditLogQuery struct {
	ListRequest
	Operation  string `form:"operation" binding:"omitempty,max=50"`
	Status     string `form:"status" binding:"omitempty,oneof=SUCCESS ERROR RETRY SKIPPED"`
	EntityKind string `form:"entity_kind" binding:"omitempty,oneof=PRODUCT CATEGORY ORDER"`
	EntityRef  string `form:"entity_ref" binding:"omitempty,max=140"`
	SinceHours int    `form:"since_hours" binding:"omitempty,min=1,max=8760"`
}

// Filter converts the query to a repository filter
func (q AuditLogQuery) Filter(now time.Time) integration.AuditLogFilter {
	f := integration.AuditLogFilter{
		Operation:  integration.OperationType(q.Operation),
		Status:     integration.AuditStatus(q.Status),
		EntityKind: integration.EntityKind(q.EntityKind),
		EntityRef:  q.EntityRef,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = DefaultListRequest().PageSize
	}
	if q.SinceHours > 0 {
		since := now.Add(-time.Duration(q.SinceHours) * time.Hour)
		f.Since = &since
	}
	return f
}

// ReportQuery selects the report window
type ReportQuery struct {
	Hours int `form:"hours" binding:"omitempty,min=1,max=720"`
}

// Window returns the report window, 24 hours by default
func (q ReportQuery) Window() time.Duration {
	if q.Hours == 0 {
		return 24 * time.Hour
	}
	return time.Duration(q.Hours) * time.Hour
}

// AuditLogResponse is one audit entry in API form
type AuditLogResponse struct {
	ID           string    `json:"id"`
	Operation    string    `json:"operation"`
	Direction    string    `json:"direction"`
	EntityKind   string    `json:"entity_kind"`
	EntityRef    string    `json:"entity_ref"`
	RemoteID     string    `json:"remote_id,omitempty"`
	Status       string    `json:"status"`
	Trigger      string    `json:"trigger,omitempty"`
	Message      string    `json:"message,omitempty"`
	ErrorDetail  string    `json:"error_detail,omitempty"`
	RequestData  string    `json:"request_data,omitempty"`
	ResponseData string    `json:"response_data,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAuditLogResponse converts a domain entry
func NewAuditLogResponse(e integration.AuditLogEntry) AuditLogResponse {
	return AuditLogResponse{
		ID:           e.ID.String(),
		Operation:    string(e.Operation),
		Direction:    string(e.Direction),
		EntityKind:   string(e.EntityKind),
		EntityRef:    e.EntityRef,
		RemoteID:     e.RemoteID,
		Status:       string(e.Status),
		Trigger:      string(e.Trigger),
		Message:      e.Message,
		ErrorDetail:  e.ErrorDetail,
		RequestData:  e.RequestPayload,
		ResponseData: e.ResponsePayload,
		DurationMs:   e.Duration.Milliseconds(),
		CreatedAt:    e.CreatedAt,
	}
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// SettingsBody is the API form of the integration settings. Secrets are
// returned redacted; sending the redacted value back keeps the stored one.
type SettingsBody struct {
	Enabled                  bool   `json:"enabled"`
	TestMode                 bool   `json:"test_mode"`
	APIBaseURL               string `json:"api_base_url"`
	SiteBaseURL              string `json:"site_base_url"`
	SiteID                   string `json:"site_id"`
	AccountID                string `json:"account_id"`
	APIKey                   string `json:"api_key"`
	SyncDescription          bool   `json:"sync_description"`
	SyncPrice                bool   `json:"sync_price"`
	SyncImages               bool   `json:"sync_images"`
	SyncInventory            bool   `json:"sync_inventory"`
	SyncCategories           bool   `json:"sync_categories"`
	SyncBrand                bool   `json:"sync_brand"`
	SyncWeight               bool   `json:"sync_weight"`
	AutoSyncItems            bool   `json:"auto_sync_items"`
	AutoSyncInventory        bool   `json:"auto_sync_inventory"`
	RetryAttempts            int    `json:"retry_attempts"`
	RetryBaseDelaySeconds    int    `json:"retry_base_delay_seconds"`
	MaxRetryDelaySeconds     int    `json:"max_retry_delay_seconds"`
	TimeoutSeconds           int    `json:"timeout_seconds"`
	WebhookSecret            string `json:"webhook_secret"`
	AllowUnsignedWebhooks    bool   `json:"allow_unsigned_webhooks"`
	DefaultPriceList         string `json:"default_price_list"`
	DefaultWarehouse         string `json:"default_warehouse"`
	DefaultCurrency          string `json:"default_currency"`
	BulkBatchSize            int    `json:"bulk_batch_size"`
	BulkItemDelayMs          int64  `json:"bulk_item_delay_ms"`
	VerifyRemoteBeforeUpdate bool   `json:"verify_remote_before_update"`
	SuccessRetentionDays     int    `json:"success_retention_days"`
	ErrorRetentionDays       int    `json:"error_retention_days"`
}

// SettingsResponse adds read-only health state to the settings body
type SettingsResponse struct {
	SettingsBody
	LastHealthCheckAt *time.Time `json:"last_health_check_at,omitempty"`
	LastHealthStatus  string     `json:"last_health_status,omitempty"`
	LastHealthMessage string     `json:"last_health_message,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

const day = 24 * time.Hour

// NewSettingsResponse converts settings, redacting secrets
func NewSettingsResponse(s integration.Settings) SettingsResponse {
	r := s.Redacted()
	return SettingsResponse{
		SettingsBody: SettingsBody{
			Enabled:                  r.Enabled,
			TestMode:                 r.TestMode,
			APIBaseURL:               r.APIBaseURL,
			SiteBaseURL:              r.SiteBaseURL,
			SiteID:                   r.SiteID,
			AccountID:                r.AccountID,
			APIKey:                   r.APIKey,
			SyncDescription:          r.SyncDescription,
			SyncPrice:                r.SyncPrice,
			SyncImages:               r.SyncImages,
			SyncInventory:            r.SyncInventory,
			SyncCategories:           r.SyncCategories,
			SyncBrand:                r.SyncBrand,
			SyncWeight:               r.SyncWeight,
			AutoSyncItems:            r.AutoSyncItems,
			AutoSyncInventory:        r.AutoSyncInventory,
			RetryAttempts:            r.RetryAttempts,
			RetryBaseDelaySeconds:    int(r.RetryBaseDelay / time.Second),
			MaxRetryDelaySeconds:     int(r.MaxRetryDelay / time.Second),
			TimeoutSeconds:           r.TimeoutSeconds,
			WebhookSecret:            r.WebhookSecret,
			AllowUnsignedWebhooks:    r.AllowUnsignedWebhooks,
			DefaultPriceList:         r.DefaultPriceList,
			DefaultWarehouse:         r.DefaultWarehouse,
			DefaultCurrency:          r.DefaultCurrency,
			BulkBatchSize:            r.BulkBatchSize,
			BulkItemDelayMs:          r.BulkItemDelay.Milliseconds(),
			VerifyRemoteBeforeUpdate: r.VerifyRemoteBeforeUpdate,
			SuccessRetentionDays:     int(r.SuccessRetention / day),
			ErrorRetentionDays:       int(r.ErrorRetention / day),
		},
		LastHealthCheckAt: r.LastHealthCheckAt,
		LastHealthStatus:  r.LastHealthStatus,
		LastHealthMessage: r.LastHealthMessage,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ToSettings converts the body to domain settings. Range checks happen in
// Settings.Validate.
func (b SettingsBody) ToSettings() integration.Settings {
	return integration.Settings{
		Enabled:                  b.Enabled,
		TestMode:                 b.TestMode,
		APIBaseURL:               b.APIBaseURL,
		SiteBaseURL:              b.SiteBaseURL,
		SiteID:                   b.SiteID,
		AccountID:                b.AccountID,
		APIKey:                   b.APIKey,
		SyncDescription:          b.SyncDescription,
		SyncPrice:                b.SyncPrice,
		SyncImages:               b.SyncImages,
		SyncInventory:            b.SyncInventory,
		SyncCategories:           b.SyncCategories,
		SyncBrand:                b.SyncBrand,
		SyncWeight:               b.SyncWeight,
		AutoSyncItems:            b.AutoSyncItems,
		AutoSyncInventory:        b.AutoSyncInventory,
		RetryAttempts:            b.RetryAttempts,
		RetryBaseDelay:           time.Duration(b.RetryBaseDelaySeconds) * time.Second,
		MaxRetryDelay:            time.Duration(b.MaxRetryDelaySeconds) * time.Second,
		TimeoutSeconds:           b.TimeoutSeconds,
		WebhookSecret:            b.WebhookSecret,
		AllowUnsignedWebhooks:    b.AllowUnsignedWebhooks,
		DefaultPriceList:         b.DefaultPriceList,
		DefaultWarehouse:         b.DefaultWarehouse,
		DefaultCurrency:          b.DefaultCurrency,
		BulkBatchSize:            b.BulkBatchSize,
		BulkItemDelay:            time.Duration(b.BulkItemDelayMs) * time.Millisecond,
		VerifyRemoteBeforeUpdate: b.VerifyRemoteBeforeUpdate,
		SuccessRetention:         time.Duration(b.SuccessRetentionDays) * day,
		ErrorRetention:           time.Duration(b.ErrorRetentionDays) * day,
	}
}
