package integration

import (
	"time"

	"github.com/erp/storesync/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Sync results
// ---------------------------------------------------------------------------

// SyncResult is the outcome of one outbound sync attempt. Remote and
// unexpected failures are reported here, never as Go errors.
type SyncResult struct {
	LocalID        string                    `json:"local_id"`
	Kind           integration.EntityKind    `json:"kind"`
	Success        bool                      `json:"success"`
	Skipped        bool                      `json:"skipped"`
	SkipReason     string                    `json:"skip_reason,omitempty"`
	Operation      integration.OperationType `json:"operation,omitempty"`
	RemoteID       string                    `json:"remote_id,omitempty"`
	Message        string                    `json:"message,omitempty"`
	ErrorKind      integration.ErrorKind     `json:"error_kind,omitempty"`
	RetryScheduled bool                      `json:"retry_scheduled,omitempty"`
}

// BulkItemError is the failure of one item within a bulk run
type BulkItemError struct {
	LocalID string `json:"local_id"`
	Error   string `json:"error"`
}

// BulkSyncSummary aggregates a bulk run. Ids beyond the batch size are
// returned in Deferred and are not attempted.
type BulkSyncSummary struct {
	Total    int             `json:"total"`
	Success  int             `json:"success"`
	Failed   int             `json:"failed"`
	Skipped  int             `json:"skipped"`
	Deferred []string        `json:"deferred"`
	Errors   []BulkItemError `json:"errors"`
	Duration time.Duration   `json:"duration"`
}

// SweepResult aggregates a scheduled sweep over many entities
type SweepResult struct {
	Processed int `json:"processed"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func (r *SweepResult) add(res *SyncResult) {
	r.Processed++
	switch {
	case res == nil:
		r.Skipped++
	case res.Skipped:
		r.Skipped++
	case res.Success:
		r.Success++
	default:
		r.Failed++
	}
}

// ---------------------------------------------------------------------------
// Status views
// ---------------------------------------------------------------------------

// SyncStatusView is the sync state of one local entity
type SyncStatusView struct {
	LocalID          string                 `json:"local_id"`
	Kind             integration.EntityKind `json:"kind"`
	Status           integration.SyncStatus `json:"status"`
	RemoteID         string                 `json:"remote_id,omitempty"`
	LastSyncAt       *time.Time             `json:"last_sync_at,omitempty"`
	LastError        string                 `json:"last_error,omitempty"`
	ErrorHistory     string                 `json:"error_history,omitempty"`
	TotalSyncs       int                    `json:"total_syncs"`
	SuccessfulSyncs  int                    `json:"successful_syncs"`
	FailedSyncs      int                    `json:"failed_syncs"`
	RetryCount       int                    `json:"retry_count"`
	NextRetryAt      *time.Time             `json:"next_retry_at,omitempty"`
	RetriesExhausted bool                   `json:"retries_exhausted"`
}

// NewSyncStatusView builds the view of a mapping. A nil mapping is an
// entity that never synced.
func NewSyncStatusView(kind integration.EntityKind, localID string, m *integration.EntityMapping) SyncStatusView {
	if m == nil {
		return SyncStatusView{LocalID: localID, Kind: kind, Status: integration.SyncStatusNotSynced}
	}
	return SyncStatusView{
		LocalID:          m.LocalID,
		Kind:             m.Kind,
		Status:           m.Status,
		RemoteID:         m.RemoteID,
		LastSyncAt:       m.LastSyncAt,
		LastError:        m.LastError,
		ErrorHistory:     m.ErrorHistory,
		TotalSyncs:       m.TotalSyncs,
		SuccessfulSyncs:  m.SuccessfulSyncs,
		FailedSyncs:      m.FailedSyncs,
		RetryCount:       m.RetryCount,
		NextRetryAt:      m.NextRetryAt,
		RetriesExhausted: m.RetriesExhausted,
	}
}

// ConnectionResult is the outcome of a credential check
type ConnectionResult struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// Webhook actions reported back to the storefront
const (
	ActionProcessed = "processed"
	ActionLogged    = "logged"
	ActionIgnored   = "ignored"
	ActionDuplicate = "duplicate"
	ActionRejected  = "rejected"
	ActionFailed    = "failed"
)

// WebhookResult is the response to one webhook delivery. StatusCode is the
// HTTP status the endpoint should answer with.
type WebhookResult struct {
	StatusCode int    `json:"-"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	EventType  string `json:"event_type,omitempty"`
	Action     string `json:"action"`
}

// WebhookRequest is one raw webhook delivery
type WebhookRequest struct {
	Body      []byte
	Signature string
	EventType string
	EventID   string
}

// ---------------------------------------------------------------------------
// Maintenance and reports
// ---------------------------------------------------------------------------

// PurgeResult counts audit entries removed by retention
type PurgeResult struct {
	SuccessDeleted int64 `json:"success_deleted"`
	ErrorDeleted   int64 `json:"error_deleted"`
}

// Total returns the number of deleted entries
func (r PurgeResult) Total() int64 {
	return r.SuccessDeleted + r.ErrorDeleted
}

// HealthResult is the outcome of a scheduled health check
type HealthResult struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checked_at"`
}

// Health statuses stored in the settings
const (
	HealthStatusHealthy   = "HEALTHY"
	HealthStatusUnhealthy = "UNHEALTHY"
	HealthStatusDisabled  = "DISABLED"
)

// ErrorSummary is a frequent error and how often it occurred
type ErrorSummary struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

// SyncReport summarizes audit activity and mapping state over a window
type SyncReport struct {
	Since           time.Time                           `json:"since"`
	Until           time.Time                           `json:"until"`
	Total           int64                               `json:"total"`
	SuccessRate     float64                             `json:"success_rate"`
	ByStatus        map[integration.AuditStatus]int64   `json:"by_status"`
	ByOperation     map[integration.OperationType]int64 `json:"by_operation"`
	TopErrors       []ErrorSummary                      `json:"top_errors"`
	AvgDurationMs   int64                               `json:"avg_duration_ms"`
	Mappings        map[integration.SyncStatus]int64    `json:"mappings"`
	SyncRate        float64                             `json:"sync_rate"`
	Recommendations []string                            `json:"recommendations"`
	Health          *HealthResult                       `json:"health,omitempty"`
	ArchiveKey      string                              `json:"archive_key,omitempty"`
}
