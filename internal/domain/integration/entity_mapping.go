package integration

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxErrorHistoryLength bounds the rolling error history kept on a mapping
	MaxErrorHistoryLength = 2000
	// MaxLastErrorLength bounds the last error message kept on a mapping
	MaxLastErrorLength = 1000

	// RemoteDeletedMessage is recorded when the storefront reports a deletion
	RemoteDeletedMessage = "deleted on storefront"
)

// ---------------------------------------------------------------------------
// EntityKind
// ---------------------------------------------------------------------------

// EntityKind identifies the kind of local entity a mapping refers to
type EntityKind string

const (
	EntityKindProduct  EntityKind = "PRODUCT"
	EntityKindCategory EntityKind = "CATEGORY"
	EntityKindOrder    EntityKind = "ORDER"
)

// IsValid returns true if the entity kind is valid
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityKindProduct, EntityKindCategory, EntityKindOrder:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityKind
func (k EntityKind) String() string {
	return string(k)
}

// ---------------------------------------------------------------------------
// SyncStatus
// ---------------------------------------------------------------------------

// SyncStatus represents the synchronization state of a mapping
type SyncStatus string

const (
	// SyncStatusNotSynced indicates the entity was never pushed
	SyncStatusNotSynced SyncStatus = "NOT_SYNCED"
	// SyncStatusPending indicates a unit of work holds the mapping
	SyncStatusPending SyncStatus = "PENDING"
	// SyncStatusSynced indicates the last attempt succeeded
	SyncStatusSynced SyncStatus = "SYNCED"
	// SyncStatusError indicates the last attempt failed
	SyncStatusError SyncStatus = "ERROR"
	// SyncStatusDisabled indicates sync is switched off for the entity
	SyncStatusDisabled SyncStatus = "DISABLED"
)

// IsValid returns true if the sync status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusNotSynced, SyncStatusPending, SyncStatusSynced, SyncStatusError, SyncStatusDisabled:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncDirection
// ---------------------------------------------------------------------------

// SyncDirection represents the direction data flows for a sync
type SyncDirection string

const (
	// SyncDirectionOutbound pushes ERP data to the storefront
	SyncDirectionOutbound SyncDirection = "ERP_TO_STOREFRONT"
	// SyncDirectionInbound pulls storefront data into the ERP
	SyncDirectionInbound SyncDirection = "STOREFRONT_TO_ERP"
	// SyncDirectionBidirectional is used for entities changed on both sides
	SyncDirectionBidirectional SyncDirection = "BIDIRECTIONAL"
)

// String returns the string representation of SyncDirection
func (d SyncDirection) String() string {
	return string(d)
}

// ---------------------------------------------------------------------------
// TriggerType
// ---------------------------------------------------------------------------

// TriggerType is the reason a sync was initiated
type TriggerType string

const (
	TriggerAuto      TriggerType = "AUTO"
	TriggerManual    TriggerType = "MANUAL"
	TriggerBulk      TriggerType = "BULK"
	TriggerRetry     TriggerType = "RETRY"
	TriggerScheduled TriggerType = "SCHEDULED"
	TriggerWebhook   TriggerType = "WEBHOOK"
)

// IsValid returns true if the trigger type is valid
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerAuto, TriggerManual, TriggerBulk, TriggerRetry, TriggerScheduled, TriggerWebhook:
		return true
	default:
		return false
	}
}

// IsExplicit reports whether a person asked for the sync, in which case
// skips are reported back and recorded instead of being silent.
func (t TriggerType) IsExplicit() bool {
	return t == TriggerManual || t == TriggerBulk
}

// String returns the string representation of TriggerType
func (t TriggerType) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// EntityMapping Entity
// ---------------------------------------------------------------------------

// EntityMapping is the persistent correspondence between a local entity and
// its storefront counterpart, together with the sync state of that pair.
// There is at most one mapping per (Kind, LocalID). Mappings are never
// hard-deleted.
type EntityMapping struct {
	ID        uuid.UUID
	Kind      EntityKind
	LocalID   string
	// RemoteID is empty until the storefront confirmed a create
	RemoteID   string
	RemoteName string
	RemoteSlug string
	Status     SyncStatus
	Direction  SyncDirection
	LastSyncAt *time.Time
	LastError  string
	// ErrorHistory holds "<RFC3339> <message>" lines, newest last
	ErrorHistory    string
	TotalSyncs      int
	SuccessfulSyncs int
	FailedSyncs     int
	// RetryCount counts consecutive failed attempts since the last success
	RetryCount       int
	NextRetryAt      *time.Time
	RetriesExhausted bool
	ClaimedAt        *time.Time
	// Version increases with every stored change; Save rejects a stale copy
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEntityMapping creates a mapping in the NotSynced state
func NewEntityMapping(kind EntityKind, localID string) (*EntityMapping, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidEntityKind
	}
	localID = strings.TrimSpace(localID)
	if localID == "" {
		return nil, ErrInvalidLocalID
	}

	now := time.Now()
	return &EntityMapping{
		ID:        uuid.New(),
		Kind:      kind,
		LocalID:   localID,
		Status:    SyncStatusNotSynced,
		Direction: SyncDirectionOutbound,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewBackfilledMapping builds the product mapping of an item that was
// synced before mappings existed, from the catalog side channel. Statuses
// other than Synced, Error and Disabled start over as NotSynced.
func NewBackfilledMapping(item *CatalogItem) (*EntityMapping, error) {
	m, err := NewEntityMapping(EntityKindProduct, item.Code)
	if err != nil {
		return nil, err
	}
	m.RemoteID = strings.TrimSpace(item.RemoteID)
	if m.RemoteID == "" {
		return nil, ErrInvalidRemoteID
	}
	switch item.SyncStatus {
	case SyncStatusSynced, SyncStatusError, SyncStatusDisabled:
		m.Status = item.SyncStatus
	}
	m.LastSyncAt = item.LastSyncAt
	return m, nil
}

// Validate validates the mapping
func (m *EntityMapping) Validate() error {
	if !m.Kind.IsValid() {
		return ErrInvalidEntityKind
	}
	if strings.TrimSpace(m.LocalID) == "" {
		return ErrInvalidLocalID
	}
	return nil
}

// HasRemote reports whether the storefront counterpart has been created
func (m *EntityMapping) HasRemote() bool {
	return m.RemoteID != ""
}

// IsDisabled reports whether sync is switched off for this entity
func (m *EntityMapping) IsDisabled() bool {
	return m.Status == SyncStatusDisabled
}

// MarkPending records that a unit of work claimed the mapping
func (m *EntityMapping) MarkPending(at time.Time) {
	m.Status = SyncStatusPending
	m.ClaimedAt = &at
	m.UpdatedAt = at
}

// RecordSuccess records a successful attempt. A non-empty remoteID replaces
// the stored one; an empty remoteID keeps it.
func (m *EntityMapping) RecordSuccess(remoteID string, at time.Time) {
	if remoteID != "" {
		m.RemoteID = remoteID
	}
	m.Status = SyncStatusSynced
	m.LastSyncAt = &at
	m.LastError = ""
	m.TotalSyncs++
	m.SuccessfulSyncs++
	m.RetryCount = 0
	m.NextRetryAt = nil
	m.RetriesExhausted = false
	m.ClaimedAt = nil
	m.UpdatedAt = at
}

// RecordFailure records a failed attempt and appends the message to the
// rolling error history.
func (m *EntityMapping) RecordFailure(errMsg string, at time.Time) {
	m.Status = SyncStatusError
	m.LastSyncAt = &at
	m.LastError = Truncate(errMsg, MaxLastErrorLength)
	m.TotalSyncs++
	m.FailedSyncs++
	m.ClaimedAt = nil
	m.appendErrorHistory(errMsg, at)
	m.UpdatedAt = at
}

// ApplyRetry stores the retry decision taken for the last failure
func (m *EntityMapping) ApplyRetry(d RetryDecision) {
	if d.CountsTowardLimit {
		m.RetryCount++
	}
	m.NextRetryAt = d.NextRetryAt
	m.RetriesExhausted = d.Exhausted
}

// IsRetryDue reports whether an automatic retry may run at now
func (m *EntityMapping) IsRetryDue(now time.Time) bool {
	if m.Status != SyncStatusError || m.RetriesExhausted || m.NextRetryAt == nil {
		return false
	}
	return !m.NextRetryAt.After(now)
}

// MarkRemoteDeleted records that the storefront counterpart no longer exists.
// The remote id is cleared so the next sync re-creates the entity.
func (m *EntityMapping) MarkRemoteDeleted(at time.Time) {
	m.RemoteID = ""
	m.RemoteSlug = ""
	m.Status = SyncStatusError
	m.LastError = RemoteDeletedMessage
	m.NextRetryAt = nil
	m.ClaimedAt = nil
	m.appendErrorHistory(RemoteDeletedMessage, at)
	m.UpdatedAt = at
}

// Reset clears the error and retry state so the entity syncs again.
// The remote id is preserved.
func (m *EntityMapping) Reset(at time.Time) {
	m.Status = SyncStatusNotSynced
	m.LastError = ""
	m.RetryCount = 0
	m.NextRetryAt = nil
	m.RetriesExhausted = false
	m.ClaimedAt = nil
	m.UpdatedAt = at
}

// Disable switches sync off for the entity
func (m *EntityMapping) Disable(at time.Time) {
	m.Status = SyncStatusDisabled
	m.NextRetryAt = nil
	m.ClaimedAt = nil
	m.UpdatedAt = at
}

// Enable switches sync back on; the entity is treated as not yet synced
func (m *EntityMapping) Enable(at time.Time) {
	if m.Status == SyncStatusDisabled {
		m.Status = SyncStatusNotSynced
		m.UpdatedAt = at
	}
}

func (m *EntityMapping) appendErrorHistory(msg string, at time.Time) {
	line := at.UTC().Format(time.RFC3339) + " " + strings.ReplaceAll(msg, "\n", " ")
	history := m.ErrorHistory
	if history != "" {
		history += "\n"
	}
	history += line

	// Trim oldest lines first, then cut inside the line if a single entry is too long
	for utf8.RuneCountInString(history) > MaxErrorHistoryLength {
		idx := strings.IndexByte(history, '\n')
		if idx < 0 {
			history = TruncateLeft(history, MaxErrorHistoryLength)
			break
		}
		history = history[idx+1:]
	}
	m.ErrorHistory = history
}

// ---------------------------------------------------------------------------
// EntityMappingRepository Interface
// ---------------------------------------------------------------------------

// EntityMappingReader defines the interface for reading mappings
type EntityMappingReader interface {
	// FindByID finds a mapping by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*EntityMapping, error)

	// FindByLocalID finds the mapping for a local entity
	FindByLocalID(ctx context.Context, kind EntityKind, localID string) (*EntityMapping, error)

	// FindByRemoteID finds the mapping for a storefront entity
	FindByRemoteID(ctx context.Context, kind EntityKind, remoteID string) (*EntityMapping, error)
}

// EntityMappingFinder defines the interface for searching mappings
type EntityMappingFinder interface {
	// FindAll finds mappings matching the filter
	FindAll(ctx context.Context, filter EntityMappingFilter) ([]EntityMapping, int64, error)

	// FindRetryDue finds failed mappings whose retry time has passed
	FindRetryDue(ctx context.Context, kind EntityKind, now time.Time, limit int) ([]EntityMapping, error)

	// FindStalePending finds mappings claimed before the cutoff
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]EntityMapping, error)

	// FindSynced finds mappings with a remote counterpart
	FindSynced(ctx context.Context, kind EntityKind, limit int) ([]EntityMapping, error)

	// CountByStatus counts mappings of a kind grouped by status
	CountByStatus(ctx context.Context, kind EntityKind) (map[SyncStatus]int64, error)
}

// EntityMappingWriter defines the interface for persisting mappings
type EntityMappingWriter interface {
	// Create inserts a new mapping, rejecting a second mapping for the same
	// (kind, local id) with ErrMappingAlreadyExists
	Create(ctx context.Context, mapping *EntityMapping) error

	// Save updates an existing mapping when the stored version still equals
	// mapping.Version, then advances the version. A concurrent change yields
	// ErrMappingConflict.
	Save(ctx context.Context, mapping *EntityMapping) error

	// Claim atomically moves a mapping that is neither Pending nor Disabled
	// to Pending and advances its version. It returns false otherwise.
	Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// EntityMappingRepository defines the full interface for mapping persistence
type EntityMappingRepository interface {
	EntityMappingReader
	EntityMappingFinder
	EntityMappingWriter
}

// EntityMappingFilter defines filter criteria for mappings
type EntityMappingFilter struct {
	// Kind filters by entity kind (optional)
	Kind EntityKind
	// Status filters by sync status (optional)
	Status SyncStatus
	// LocalIDs filters by local ids (optional)
	LocalIDs []string
	// Page number (1-indexed)
	Page int
	// Page size
	PageSize int
	// OrderBy is a column name, OrderDir is ASC or DESC (optional)
	OrderBy  string
	OrderDir string
}
