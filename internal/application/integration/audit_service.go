package integration

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
)

// Audit listing defaults
const (
	defaultAuditPageSize = 20
	maxAuditPageSize     = 100
)

// AuditService appends and queries the sync audit trail
type AuditService struct {
	repo   integration.AuditLogRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService creates an audit service
func NewAuditService(repo integration.AuditLogRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger, now: time.Now}
}

// Record appends an entry. A failed write is logged and never fails the
// operation being audited.
func (s *AuditService) Record(ctx context.Context, entry *integration.AuditLogEntry) {
	if entry == nil {
		return
	}
	entry.Enforce()
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to write audit entry",
			zap.String("operation", entry.Operation.String()),
			zap.String("entity_ref", entry.EntityRef),
			zap.String("status", entry.Status.String()),
			zap.Error(err),
		)
	}
}

// List returns entries newest first
func (s *AuditService) List(ctx context.Context, filter integration.AuditLogFilter) ([]integration.AuditLogEntry, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultAuditPageSize
	}
	if filter.PageSize > maxAuditPageSize {
		filter.PageSize = maxAuditPageSize
	}
	return s.repo.FindAll(ctx, filter)
}

// Purge applies the retention windows of settings. A zero window keeps the
// entries of that status.
func (s *AuditService) Purge(ctx context.Context, settings integration.Settings) (PurgeResult, error) {
	var result PurgeResult
	now := s.now()

	if settings.SuccessRetention > 0 {
		n, err := s.repo.PurgeBefore(ctx, integration.AuditStatusSuccess, now.Add(-settings.SuccessRetention))
		if err != nil {
			return result, err
		}
		result.SuccessDeleted = n
	}
	if settings.ErrorRetention > 0 {
		n, err := s.repo.PurgeBefore(ctx, integration.AuditStatusError, now.Add(-settings.ErrorRetention))
		if err != nil {
			return result, err
		}
		result.ErrorDeleted = n
	}

	s.logger.Info("Audit retention applied",
		zap.Int64("success_deleted", result.SuccessDeleted),
		zap.Int64("error_deleted", result.ErrorDeleted),
	)
	return result, nil
}

// Stats aggregates entries created since the given time
func (s *AuditService) Stats(ctx context.Context, since time.Time, topErrors int) (*integration.AuditStats, error) {
	return s.repo.Stats(ctx, since, topErrors)
}
