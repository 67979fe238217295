package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
)

// Report defaults
const (
	DefaultReportWindow = 24 * time.Hour
	reportTopErrors     = 5
)

// ReportArchive keeps report documents outside the database. Put returns
// the key the document was stored under.
type ReportArchive interface {
	Put(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

// MaintenanceService runs the housekeeping jobs of the integration:
// audit retention, health checks and activity reports.
type MaintenanceService struct {
	settings *SettingsService
	mappings *MappingService
	audit    *AuditService
	client   integration.StorefrontClient
	archive  ReportArchive
	logger   *zap.Logger
	now      func() time.Time
}

// NewMaintenanceService creates a maintenance service
func NewMaintenanceService(settings *SettingsService, mappings *MappingService, audit *AuditService, client integration.StorefrontClient, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		settings: settings,
		mappings: mappings,
		audit:    audit,
		client:   client,
		logger:   logger.Named("maintenance"),
		now:      time.Now,
	}
}

// SetArchive enables archiving of daily reports
func (s *MaintenanceService) SetArchive(archive ReportArchive) {
	s.archive = archive
}

// PurgeAudit deletes audit entries past their retention window
func (s *MaintenanceService) PurgeAudit(ctx context.Context) (PurgeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "MaintenanceService", "PurgeAudit")
	defer span.End()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return PurgeResult{}, err
	}
	started := s.now()
	result, err := s.audit.Purge(ctx, settings)
	if err != nil {
		telemetry.RecordError(span, err)
		s.audit.Record(ctx, integration.NewAuditLogEntry(integration.OperationMaintenance, integration.EntityKindProduct, "audit_purge", integration.AuditStatusError).
			WithTrigger(integration.TriggerScheduled).
			WithMessage("Audit retention failed").
			WithError(err.Error()))
		return result, err
	}

	if result.Total() > 0 {
		s.audit.Record(ctx, integration.NewAuditLogEntry(integration.OperationMaintenance, integration.EntityKindProduct, "audit_purge", integration.AuditStatusSuccess).
			WithTrigger(integration.TriggerScheduled).
			WithMessage(fmt.Sprintf("Deleted %d audit entries", result.Total())).
			WithResponse(result).
			WithDuration(s.now().Sub(started)))
	}
	telemetry.SetAttributes(span, "purge.deleted", result.Total())
	return result, nil
}

// HealthCheck tests the storefront connection and stores the outcome in the
// settings record
func (s *MaintenanceService) HealthCheck(ctx context.Context) (*HealthResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "MaintenanceService", "HealthCheck")
	defer span.End()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	started := s.now()
	result := &HealthResult{CheckedAt: started}
	switch {
	case !settings.Enabled:
		result.Status = HealthStatusDisabled
		result.Message = "Integration is disabled"
	case !settings.HasCredentials():
		result.Status = HealthStatusUnhealthy
		result.Message = integration.ErrCredentialsIncomplete.Error()
	default:
		res := s.client.TestConnection(ctx, settings)
		if res.Success {
			result.Status = HealthStatusHealthy
			result.Message = "Connection successful"
		} else {
			result.Status = HealthStatusUnhealthy
			result.Message = res.Error
		}
	}

	if err := s.settings.RecordHealth(ctx, *result); err != nil {
		logger.Using(ctx, s.logger).Warn("Failed to store health status", zap.Error(err))
	}

	status := integration.AuditStatusSuccess
	switch result.Status {
	case HealthStatusUnhealthy:
		status = integration.AuditStatusError
	case HealthStatusDisabled:
		status = integration.AuditStatusSkipped
	}
	s.audit.Record(ctx, integration.NewAuditLogEntry(integration.OperationHealthCheck, integration.EntityKindProduct, "health", status).
		WithTrigger(integration.TriggerScheduled).
		WithMessage(result.Message).
		WithDuration(s.now().Sub(started)))

	telemetry.SetAttributes(span, "health.status", result.Status)
	if result.Status == HealthStatusUnhealthy {
		logger.Using(ctx, s.logger).Warn("Storefront health check failed", zap.String("message", result.Message))
	}
	return result, nil
}

// Report summarizes the audit trail since the given time together with the
// current mapping state. A zero since covers the last day.
func (s *MaintenanceService) Report(ctx context.Context, since time.Time) (*SyncReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "MaintenanceService", "Report")
	defer span.End()

	now := s.now()
	if since.IsZero() {
		since = now.Add(-DefaultReportWindow)
	}
	stats, err := s.audit.Stats(ctx, since, reportTopErrors)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	mappings, err := s.mappings.CountByStatus(ctx, integration.EntityKindProduct)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &SyncReport{
		Since:         since,
		Until:         now,
		Total:         stats.Total,
		SuccessRate:   stats.SuccessRate(),
		ByStatus:      stats.ByStatus,
		ByOperation:   stats.ByOperation,
		TopErrors:     make([]ErrorSummary, 0, len(stats.TopErrors)),
		AvgDurationMs: stats.AvgDuration.Milliseconds(),
		Mappings:      mappings,
		SyncRate:      syncRate(mappings),
	}
	for _, e := range stats.TopErrors {
		report.TopErrors = append(report.TopErrors, ErrorSummary{Message: e.Message, Count: e.Count})
	}
	report.Recommendations = recommendations(report)

	if settings, err := s.settings.Load(ctx); err == nil && settings.LastHealthCheckAt != nil {
		report.Health = &HealthResult{
			Status:    settings.LastHealthStatus,
			Message:   settings.LastHealthMessage,
			CheckedAt: *settings.LastHealthCheckAt,
		}
	}
	return report, nil
}

// DailyReport builds the report of the last day and records it in the audit
// log
func (s *MaintenanceService) DailyReport(ctx context.Context) (*SyncReport, error) {
	report, err := s.Report(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	if s.archive != nil {
		// A failed upload never fails the report itself
		if key, err := s.archiveReport(ctx, report); err != nil {
			logger.Using(ctx, s.logger).Warn("Failed to archive daily report", zap.Error(err))
		} else {
			report.ArchiveKey = key
		}
	}
	s.audit.Record(ctx, integration.NewAuditLogEntry(integration.OperationReport, integration.EntityKindProduct, "daily_report", integration.AuditStatusSuccess).
		WithTrigger(integration.TriggerScheduled).
		WithMessage(fmt.Sprintf("Daily report: %d operations, %.1f%% success", report.Total, report.SuccessRate)).
		WithResponse(report))

	logger.Using(ctx, s.logger).Info("Daily sync report",
		zap.Int64("total", report.Total),
		zap.Float64("success_rate", report.SuccessRate),
		zap.Float64("sync_rate", report.SyncRate),
		zap.Strings("recommendations", report.Recommendations),
	)
	return report, nil
}

// archiveReport stores the report as JSON under YYYY/MM/DD/ of its end time
func (s *MaintenanceService) archiveReport(ctx context.Context, report *SyncReport) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	until := report.Until.UTC()
	name := fmt.Sprintf("%s/sync-report-%s.json", until.Format("2006/01/02"), until.Format("150405"))
	return s.archive.Put(ctx, name, body, "application/json")
}

// syncRate is the percentage of product mappings in the Synced state
func syncRate(counts map[integration.SyncStatus]int64) float64 {
	var total int64
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(counts[integration.SyncStatusSynced]) / float64(total) * 100
}

func recommendations(r *SyncReport) []string {
	out := []string{}
	failed := r.ByStatus[integration.AuditStatusError]

	switch {
	case r.SuccessRate < 80 && r.Total > 10:
		out = append(out, "Success rate is below 80%. Review error logs and consider configuration adjustments.")
	case r.SuccessRate < 95 && r.Total > 50:
		out = append(out, "Success rate is below 95%. Monitor for recurring issues.")
	}
	if failed > 20 {
		out = append(out, "High number of failed operations. Check storefront connectivity and credentials.")
	}
	if r.Total < 5 {
		out = append(out, "Low sync activity detected. Verify that auto-sync is enabled and working correctly.")
	}

	if len(r.TopErrors) > 0 {
		top := strings.ToLower(r.TopErrors[0].Message)
		if strings.Contains(top, "timeout") || strings.Contains(top, "connection") {
			out = append(out, "Connection issues detected. Consider increasing the timeout or check network connectivity.")
		}
		if strings.Contains(top, "authentication") || strings.Contains(top, "unauthorized") {
			out = append(out, "Authentication issues detected. Verify storefront API credentials and permissions.")
		}
		if integration.IsRateLimitMessage(top) {
			out = append(out, "Rate limiting detected. Consider lowering the bulk batch size or raising the item delay.")
		}
	}
	return out
}
