package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audit field limits, matching the column widths of the audit table
const (
	MaxAuditEntityRefLength = 140
	MaxAuditRemoteIDLength  = 100
	MaxAuditMessageLength   = 1000
	MaxAuditPayloadLength   = 5000
	MaxAuditErrorLength     = 1000
)

// ---------------------------------------------------------------------------
// OperationType
// ---------------------------------------------------------------------------

// OperationType identifies what an audited attempt did
type OperationType string

const (
	OperationProductCreate  OperationType = "PRODUCT_CREATE"
	OperationProductUpdate  OperationType = "PRODUCT_UPDATE"
	OperationProductDelete  OperationType = "PRODUCT_DELETE"
	OperationProductSync    OperationType = "PRODUCT_SYNC"
	OperationInventorySync  OperationType = "INVENTORY_SYNC"
	OperationCategorySync   OperationType = "CATEGORY_SYNC"
	OperationOrderImport    OperationType = "ORDER_IMPORT"
	OperationWebhook        OperationType = "WEBHOOK"
	OperationBulkSync       OperationType = "BULK_SYNC"
	OperationConnectionTest OperationType = "CONNECTION_TEST"
	OperationHealthCheck    OperationType = "HEALTH_CHECK"
	OperationReport         OperationType = "REPORT"
	OperationMaintenance    OperationType = "MAINTENANCE"
)

// IsRetryable reports whether failures of this operation may be retried
func (o OperationType) IsRetryable() bool {
	switch o {
	case OperationProductCreate, OperationProductUpdate, OperationProductSync,
		OperationInventorySync, OperationCategorySync:
		return true
	default:
		return false
	}
}

// String returns the string representation of OperationType
func (o OperationType) String() string {
	return string(o)
}

// ---------------------------------------------------------------------------
// AuditStatus
// ---------------------------------------------------------------------------

// AuditStatus is the outcome recorded for an attempt
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "SUCCESS"
	AuditStatusError   AuditStatus = "ERROR"
	AuditStatusRetry   AuditStatus = "RETRY"
	AuditStatusSkipped AuditStatus = "SKIPPED"
)

// IsValid returns true if the audit status is valid
func (s AuditStatus) IsValid() bool {
	switch s {
	case AuditStatusSuccess, AuditStatusError, AuditStatusRetry, AuditStatusSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of AuditStatus
func (s AuditStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// AuditLogEntry
// ---------------------------------------------------------------------------

// AuditLogEntry is an immutable record of one sync attempt or inbound event.
// Text fields are truncated when set, so an entry never exceeds the limits
// above regardless of input size.
type AuditLogEntry struct {
	ID              uuid.UUID
	Operation       OperationType
	EntityKind      EntityKind
	EntityRef       string
	RemoteID        string
	Direction       SyncDirection
	Status          AuditStatus
	Trigger         TriggerType
	Message         string
	RequestPayload  string
	ResponsePayload string
	ErrorDetail     string
	Duration        time.Duration
	CreatedAt       time.Time
}

// NewAuditLogEntry creates an outbound audit entry
func NewAuditLogEntry(op OperationType, kind EntityKind, entityRef string, status AuditStatus) *AuditLogEntry {
	return &AuditLogEntry{
		ID:         uuid.New(),
		Operation:  op,
		EntityKind: kind,
		EntityRef:  Truncate(entityRef, MaxAuditEntityRefLength),
		Direction:  SyncDirectionOutbound,
		Status:     status,
		CreatedAt:  time.Now(),
	}
}

// WithMessage sets the truncated message
func (e *AuditLogEntry) WithMessage(msg string) *AuditLogEntry {
	e.Message = Truncate(msg, MaxAuditMessageLength)
	return e
}

// WithRequest serializes and truncates the request payload
func (e *AuditLogEntry) WithRequest(payload any) *AuditLogEntry {
	e.RequestPayload = SerializePayload(payload, MaxAuditPayloadLength)
	return e
}

// WithResponse serializes and truncates the response payload
func (e *AuditLogEntry) WithResponse(payload any) *AuditLogEntry {
	e.ResponsePayload = SerializePayload(payload, MaxAuditPayloadLength)
	return e
}

// WithError sets the truncated error detail
func (e *AuditLogEntry) WithError(detail string) *AuditLogEntry {
	e.ErrorDetail = Truncate(detail, MaxAuditErrorLength)
	return e
}

// WithRemoteID sets the truncated remote id
func (e *AuditLogEntry) WithRemoteID(remoteID string) *AuditLogEntry {
	e.RemoteID = Truncate(remoteID, MaxAuditRemoteIDLength)
	return e
}

// WithDirection sets the direction
func (e *AuditLogEntry) WithDirection(d SyncDirection) *AuditLogEntry {
	e.Direction = d
	return e
}

// WithTrigger sets the trigger type
func (e *AuditLogEntry) WithTrigger(t TriggerType) *AuditLogEntry {
	e.Trigger = t
	return e
}

// WithDuration sets the execution duration
func (e *AuditLogEntry) WithDuration(d time.Duration) *AuditLogEntry {
	e.Duration = d
	return e
}

// Enforce re-applies the field limits. Repositories call it before writing
// entries that were built without the With* setters.
func (e *AuditLogEntry) Enforce() {
	e.EntityRef = Truncate(e.EntityRef, MaxAuditEntityRefLength)
	e.RemoteID = Truncate(e.RemoteID, MaxAuditRemoteIDLength)
	e.Message = Truncate(e.Message, MaxAuditMessageLength)
	e.RequestPayload = Truncate(e.RequestPayload, MaxAuditPayloadLength)
	e.ResponsePayload = Truncate(e.ResponsePayload, MaxAuditPayloadLength)
	e.ErrorDetail = Truncate(e.ErrorDetail, MaxAuditErrorLength)
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
}

// ---------------------------------------------------------------------------
// Audit statistics
// ---------------------------------------------------------------------------

// ErrorCount is a frequent error message and how often it occurred
type ErrorCount struct {
	Message string
	Count   int64
}

// AuditStats summarizes audit entries over a window
type AuditStats struct {
	Since       time.Time
	Total       int64
	ByStatus    map[AuditStatus]int64
	ByOperation map[OperationType]int64
	TopErrors   []ErrorCount
	AvgDuration time.Duration
}

// SuccessRate returns the success percentage, 0 when there are no entries
func (s *AuditStats) SuccessRate() float64 {
	if s == nil || s.Total == 0 {
		return 0
	}
	return float64(s.ByStatus[AuditStatusSuccess]) / float64(s.Total) * 100
}

// ---------------------------------------------------------------------------
// AuditLogRepository Interface
// ---------------------------------------------------------------------------

// AuditLogFilter defines filter criteria for audit entries
type AuditLogFilter struct {
	Operation  OperationType
	Status     AuditStatus
	EntityKind EntityKind
	EntityRef  string
	Since      *time.Time
	Page       int
	PageSize   int
}

// AuditLogRepository persists audit entries. There is no update method.
type AuditLogRepository interface {
	// Append stores a new entry
	Append(ctx context.Context, entry *AuditLogEntry) error

	// FindAll lists entries newest first
	FindAll(ctx context.Context, filter AuditLogFilter) ([]AuditLogEntry, int64, error)

	// PurgeBefore deletes entries with the given status created before cutoff
	PurgeBefore(ctx context.Context, status AuditStatus, cutoff time.Time) (int64, error)

	// Stats aggregates entries created since the given time
	Stats(ctx context.Context, since time.Time, topErrors int) (*AuditStats, error)
}
