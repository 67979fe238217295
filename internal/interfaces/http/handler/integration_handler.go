package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	integrationapp "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/dto"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
)

// AuditReader lists audit log entries
type AuditReader interface {
	List(ctx context.Context, filter integration.AuditLogFilter) ([]integration.AuditLogEntry, int64, error)
}

// Reporter builds sync reports over a window
type Reporter interface {
	Report(ctx context.Context, since time.Time) (*integrationapp.SyncReport, error)
}

// SettingsManager reads and replaces the integration settings
type SettingsManager interface {
	Load(ctx context.Context) (integration.Settings, error)
	Update(ctx context.Context, next integration.Settings) (integration.Settings, error)
}

var (
	_ AuditReader     = (*integrationapp.AuditService)(nil)
	_ Reporter        = (*integrationapp.MaintenanceService)(nil)
	_ SettingsManager = (*integrationapp.SettingsService)(nil)
)

// IntegrationHandler serves the audit log, reports and settings
type IntegrationHandler struct {
	BaseHandler
	audit    AuditReader
	reports  Reporter
	settings SettingsManager
	now      func() time.Time
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(audit AuditReader, reports Reporter, settings SettingsManager) *IntegrationHandler {
	return &IntegrationHandler{
		audit:    audit,
		reports:  reports,
		settings: settings,
		now:      time.Now,
	}
}

// ListLogs godoc
//
//	@ID				listSyncLogs
//	@Summary		List audit log entries
//	@Tags			integration
//	@Produce		json
//	@Param			page		query		int		false	"Page"
//	@Param			page_size	query		int		false	"Page size"
//	@Param			operation	query		string	false	"Operation"
//	@Param			status		query		string	false	"SUCCESS, ERROR, RETRY or SKIPPED"
//	@Param			entity_kind	query		string	false	"PRODUCT, CATEGORY or ORDER"
//	@Param			entity_ref	query		string	false	"Local id"
//	@Param			since_hours	query		int		false	"Only entries from the last N hours"
//	@Success		200			{object}	APIResponse[[]dto.AuditLogResponse]
//	@Security		BearerAuth
//	@Router			/integration/logs [get]
func (h *IntegrationHandler) ListLogs(c *gin.Context) {
	var q dto.AuditLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	filter := q.Filter(h.now())

	entries, total, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]dto.AuditLogResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.NewAuditLogResponse(e))
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// GetReport godoc
//
//	@ID				getSyncReport
//	@Summary		Sync report over a window
//	@Tags			integration
//	@Produce		json
//	@Param			hours	query		int	false	"Window in hours, default 24"
//	@Success		200		{object}	APIResponse[integrationapp.SyncReport]
//	@Security		BearerAuth
//	@Router			/integration/report [get]
func (h *IntegrationHandler) GetReport(c *gin.Context) {
	var q dto.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	report, err := h.reports.Report(c.Request.Context(), h.now().Add(-q.Window()))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GetSettings godoc
//
//	@ID				getIntegrationSettings
//	@Summary		Get the integration settings
//	@Description	Secrets are redacted
//	@Tags			integration
//	@Produce		json
//	@Success		200	{object}	APIResponse[dto.SettingsResponse]
//	@Security		BearerAuth
//	@Router			/integration/settings [get]
func (h *IntegrationHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Load(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewSettingsResponse(settings))
}

// UpdateSettings godoc
//
//	@ID				updateIntegrationSettings
//	@Summary		Replace the integration settings
//	@Description	Redacted secrets keep their stored value
//	@Tags			integration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.SettingsBody	true	"Settings"
//	@Success		200		{object}	APIResponse[dto.SettingsResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/integration/settings [put]
func (h *IntegrationHandler) UpdateSettings(c *gin.Context) {
	var body dto.SettingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BindError(c, err)
		return
	}

	updated, err := h.settings.Update(c.Request.Context(), body.ToSettings())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.GetGinLogger(c).Info("Integration settings updated",
		zap.String("operator", middleware.GetOperator(c)),
		zap.Bool("enabled", updated.Enabled),
	)
	h.Success(c, dto.NewSettingsResponse(updated))
}
