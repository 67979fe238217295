package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	integrationapp "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/dto"
)

// SyncOperations is the part of the sync service the operator API drives
type SyncOperations interface {
	SyncEntity(ctx context.Context, localID string, trigger integration.TriggerType) (*integrationapp.SyncResult, error)
	BulkSync(ctx context.Context, ids []string) (*integrationapp.BulkSyncSummary, error)
	GetSyncStatus(ctx context.Context, localID string) (integrationapp.SyncStatusView, error)
	ResetSyncStatus(ctx context.Context, localID string) (integrationapp.SyncStatusView, error)
	TestConnection(ctx context.Context) (*integrationapp.ConnectionResult, error)
}

var _ SyncOperations = (*integrationapp.SyncService)(nil)

// SyncHandler handles the manual sync endpoints
type SyncHandler struct {
	BaseHandler
	sync      SyncOperations
	publisher integration.TaskPublisher
}

// NewSyncHandler creates a new SyncHandler. publisher may be nil, in which
// case async requests are refused.
func NewSyncHandler(sync SyncOperations, publisher integration.TaskPublisher) *SyncHandler {
	return &SyncHandler{
		sync:      sync,
		publisher: publisher,
	}
}

// SyncEntity godoc
//
//	@ID				syncEntity
//	@Summary		Sync one catalog item
//	@Description	Pushes the item to the storefront now, or queues it when async is set
//	@Tags			integration
//	@Accept			json
//	@Produce		json
//	@Param			local_id	path		string					true	"Catalog item code"
//	@Param			request		body		dto.SyncEntityRequest	false	"Options"
//	@Success		200			{object}	APIResponse[integrationapp.SyncResult]
//	@Success		202			{object}	APIResponse[dto.QueuedResponse]
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/integration/sync/{local_id} [post]
func (h *SyncHandler) SyncEntity(c *gin.Context) {
	localID, ok := localIDParam(c)
	if !ok {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Invalid local id")
		return
	}

	var req dto.SyncEntityRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.BindError(c, err)
			return
		}
	}

	if req.Async {
		task := integration.NewSyncTask(integration.TaskSyncProduct, localID, integration.TriggerManual)
		h.enqueue(c, task, dto.QueuedResponse{TaskID: task.ID, Type: task.Type.String(), LocalID: localID})
		return
	}

	result, err := h.sync.SyncEntity(c.Request.Context(), localID, integration.TriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BulkSync godoc
//
//	@ID				bulkSync
//	@Summary		Sync many catalog items
//	@Description	Syncs up to the configured batch size; the rest are returned as deferred
//	@Tags			integration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.BulkSyncRequest	true	"Item codes"
//	@Success		200		{object}	APIResponse[integrationapp.BulkSyncSummary]
//	@Success		202		{object}	APIResponse[dto.QueuedResponse]
//	@Failure		400		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/integration/sync/bulk [post]
func (h *SyncHandler) BulkSync(c *gin.Context) {
	var req dto.BulkSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if req.Async {
		task := integration.NewSyncTask(integration.TaskBulkSync, "", integration.TriggerBulk)
		task.LocalIDs = req.LocalIDs
		h.enqueue(c, task, dto.QueuedResponse{TaskID: task.ID, Type: task.Type.String(), Count: len(req.LocalIDs)})
		return
	}

	summary, err := h.sync.BulkSync(c.Request.Context(), req.LocalIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// GetSyncStatus godoc
//
//	@ID				getSyncStatus
//	@Summary		Get the sync state of a catalog item
//	@Tags			integration
//	@Produce		json
//	@Param			local_id	path		string	true	"Catalog item code"
//	@Success		200			{object}	APIResponse[integrationapp.SyncStatusView]
//	@Failure		404			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/integration/sync/{local_id} [get]
func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	localID, ok := localIDParam(c)
	if !ok {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Invalid local id")
		return
	}
	view, err := h.sync.GetSyncStatus(c.Request.Context(), localID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// ResetSyncStatus godoc
//
//	@ID				resetSyncStatus
//	@Summary		Clear the error and retry state of a catalog item
//	@Tags			integration
//	@Produce		json
//	@Param			local_id	path		string	true	"Catalog item code"
//	@Success		200			{object}	APIResponse[integrationapp.SyncStatusView]
//	@Failure		404			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/integration/sync/{local_id}/reset [post]
func (h *SyncHandler) ResetSyncStatus(c *gin.Context) {
	localID, ok := localIDParam(c)
	if !ok {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Invalid local id")
		return
	}
	view, err := h.sync.ResetSyncStatus(c.Request.Context(), localID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// TestConnection godoc
//
//	@ID				testConnection
//	@Summary		Check the storefront credentials
//	@Tags			integration
//	@Produce		json
//	@Success		200	{object}	APIResponse[integrationapp.ConnectionResult]
//	@Security		BearerAuth
//	@Router			/integration/test-connection [post]
func (h *SyncHandler) TestConnection(c *gin.Context) {
	result, err := h.sync.TestConnection(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *SyncHandler) enqueue(c *gin.Context, task *integration.SyncTask, resp dto.QueuedResponse) {
	if h.publisher == nil {
		h.ErrorWithCode(c, dto.ErrCodeQueueUnavailable, "Task queue is not configured")
		return
	}
	if err := h.publisher.Publish(c.Request.Context(), task); err != nil {
		logger.GetGinLogger(c).Error("Failed to queue sync task",
			zap.String("task_type", task.Type.String()),
			zap.Error(err),
		)
		h.ErrorWithCode(c, dto.ErrCodeQueueUnavailable, "Failed to queue task")
		return
	}
	h.Accepted(c, resp)
}
