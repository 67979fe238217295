package integration

import (
	"context"
	"errors"
	"time"

	"github.com/erp/storesync/internal/domain/integration"
)

// maxUpdateAttempts bounds how often Update re-reads a mapping that another
// writer changed
const maxUpdateAttempts = 3

// MappingService wraps the entity mapping store with the lazy creation and
// claim rules the sync services rely on.
type MappingService struct {
	repo    integration.EntityMappingRepository
	catalog integration.CatalogReader
	now     func() time.Time
}

// MappingOption configures a MappingService
type MappingOption func(*MappingService)

// WithLocalCatalog makes GetOrCreate refuse product ids that are not in the
// local catalog
func WithLocalCatalog(catalog integration.CatalogReader) MappingOption {
	return func(s *MappingService) {
		s.catalog = catalog
	}
}

// NewMappingService creates a mapping service
func NewMappingService(repo integration.EntityMappingRepository, opts ...MappingOption) *MappingService {
	s := &MappingService{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find returns the mapping of a local entity, or nil when there is none
func (s *MappingService) Find(ctx context.Context, kind integration.EntityKind, localID string) (*integration.EntityMapping, error) {
	m, err := s.repo.FindByLocalID(ctx, kind, localID)
	if errors.Is(err, integration.ErrMappingNotFound) {
		return nil, nil
	}
	return m, err
}

// FindByRemoteID returns the mapping of a storefront entity, or nil
func (s *MappingService) FindByRemoteID(ctx context.Context, kind integration.EntityKind, remoteID string) (*integration.EntityMapping, error) {
	m, err := s.repo.FindByRemoteID(ctx, kind, remoteID)
	if errors.Is(err, integration.ErrMappingNotFound) {
		return nil, nil
	}
	return m, err
}

// GetOrCreate returns the mapping of a local entity, creating it on first
// use. A concurrent creator wins and its row is returned. With a local
// catalog set, a product id the catalog does not know yields
// ErrLocalEntityNotFound.
func (s *MappingService) GetOrCreate(ctx context.Context, kind integration.EntityKind, localID string) (*integration.EntityMapping, error) {
	m, err := s.Find(ctx, kind, localID)
	if err != nil || m != nil {
		return m, err
	}

	if kind == integration.EntityKindProduct && s.catalog != nil {
		exists, err := s.catalog.ExistsByCode(ctx, localID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, integration.ErrLocalEntityNotFound
		}
	}

	m, err = integration.NewEntityMapping(kind, localID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, integration.ErrMappingAlreadyExists) {
			return s.repo.FindByLocalID(ctx, kind, localID)
		}
		return nil, err
	}
	return m, nil
}

// ClaimForSync moves the mapping to Pending and replaces *m with the row as
// claimed, so the caller never works from a copy read before another worker
// finished. ErrSyncInProgress is returned when another unit of work holds
// it, ErrMappingDisabled when sync is switched off for the entity.
func (s *MappingService) ClaimForSync(ctx context.Context, m *integration.EntityMapping) error {
	ok, err := s.repo.Claim(ctx, m.ID, s.now())
	if err != nil {
		return err
	}
	current, err := s.repo.FindByID(ctx, m.ID)
	if err != nil {
		return err
	}
	if !ok {
		if current.IsDisabled() {
			return integration.ErrMappingDisabled
		}
		return integration.ErrSyncInProgress
	}
	*m = *current
	return nil
}

// Save persists a mapping. ErrMappingConflict means the stored row changed
// since m was read.
func (s *MappingService) Save(ctx context.Context, m *integration.EntityMapping) error {
	return s.repo.Save(ctx, m)
}

// Update applies change to m and saves it. When another writer got there
// first the mapping is re-read and change runs again on the fresh row.
// change returns false to leave the mapping untouched, in which case Update
// reports false.
func (s *MappingService) Update(ctx context.Context, m *integration.EntityMapping, change func(*integration.EntityMapping) bool) (bool, error) {
	for attempt := 1; ; attempt++ {
		if !change(m) {
			return false, nil
		}
		err := s.repo.Save(ctx, m)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, integration.ErrMappingConflict) || attempt == maxUpdateAttempts {
			return false, err
		}
		current, err := s.repo.FindByID(ctx, m.ID)
		if err != nil {
			return false, err
		}
		*m = *current
	}
}

// List returns mappings matching filter
func (s *MappingService) List(ctx context.Context, filter integration.EntityMappingFilter) ([]integration.EntityMapping, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.repo.FindAll(ctx, filter)
}

// CountByStatus returns mapping counts per status for a kind
func (s *MappingService) CountByStatus(ctx context.Context, kind integration.EntityKind) (map[integration.SyncStatus]int64, error) {
	return s.repo.CountByStatus(ctx, kind)
}

// RetryDue returns failed mappings whose retry time has passed
func (s *MappingService) RetryDue(ctx context.Context, kind integration.EntityKind, limit int) ([]integration.EntityMapping, error) {
	return s.repo.FindRetryDue(ctx, kind, s.now(), limit)
}

// StalePending returns mappings claimed before cutoff that never finished
func (s *MappingService) StalePending(ctx context.Context, cutoff time.Time, limit int) ([]integration.EntityMapping, error) {
	return s.repo.FindStalePending(ctx, cutoff, limit)
}

// Synced returns mappings in the Synced state
func (s *MappingService) Synced(ctx context.Context, kind integration.EntityKind, limit int) ([]integration.EntityMapping, error) {
	return s.repo.FindSynced(ctx, kind, limit)
}

// Create stores a new mapping built by the caller
func (s *MappingService) Create(ctx context.Context, m *integration.EntityMapping) error {
	return s.repo.Create(ctx, m)
}
