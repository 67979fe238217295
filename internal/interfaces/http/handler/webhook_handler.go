package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	integrationapp "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/domain/integration"
)

// Webhook request headers
const (
	HeaderSignature       = "X-Storefront-Signature"
	HeaderHubSignature    = "X-Hub-Signature-256"
	HeaderEventType       = "X-Storefront-Event"
	HeaderEventID         = "X-Storefront-Event-Id"
	maxWebhookPayloadSize = 512 << 10
)

// WebhookProcessor handles one raw webhook delivery
type WebhookProcessor interface {
	Handle(ctx context.Context, req integrationapp.WebhookRequest) *integrationapp.WebhookResult
	// Reject records a delivery refused before its body was accepted
	Reject(ctx context.Context, req integrationapp.WebhookRequest, code int, reason error) *integrationapp.WebhookResult
}

var _ WebhookProcessor = (*integrationapp.WebhookService)(nil)

// WebhookHandler receives storefront webhooks. The endpoint is public and
// authenticated by the payload signature, not by a bearer token.
type WebhookHandler struct {
	BaseHandler
	webhooks WebhookProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhooks WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// HandleStorefrontWebhook godoc
//
//	@ID				handleStorefrontWebhook
//	@Summary		Receive a storefront webhook
//	@Description	Verifies the HMAC-SHA256 signature over the raw body and routes the event
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			X-Storefront-Signature	header		string							false	"hex HMAC-SHA256 of the body"
//	@Param			X-Storefront-Event		header		string							false	"Event type"
//	@Param			X-Storefront-Event-Id	header		string							false	"Delivery id"
//	@Success		200						{object}	integrationapp.WebhookResult	"Processed, ignored or duplicate"
//	@Failure		400						{object}	integrationapp.WebhookResult	"Malformed payload"
//	@Failure		401						{object}	integrationapp.WebhookResult	"Invalid signature"
//	@Failure		413						{object}	integrationapp.WebhookResult	"Payload too large"
//	@Failure		500						{object}	integrationapp.WebhookResult	"Processing failed"
//	@Router			/webhooks/storefront [post]
func (h *WebhookHandler) HandleStorefrontWebhook(c *gin.Context) {
	req := integrationapp.WebhookRequest{
		EventType: c.GetHeader(HeaderEventType),
		EventID:   c.GetHeader(HeaderEventID),
	}

	// The raw body is needed for signature verification
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		result := h.webhooks.Reject(c.Request.Context(), req, http.StatusBadRequest, fmt.Errorf("%w: %v", integration.ErrUnreadableBody, err))
		result.Error = "Failed to read request body"
		c.JSON(http.StatusBadRequest, result)
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		result := h.webhooks.Reject(c.Request.Context(), req, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%w: more than %d bytes", integration.ErrPayloadTooLarge, maxWebhookPayloadSize))
		result.Error = "Payload too large"
		c.JSON(http.StatusRequestEntityTooLarge, result)
		return
	}

	signature := c.GetHeader(HeaderSignature)
	if signature == "" {
		signature = c.GetHeader(HeaderHubSignature)
	}

	req.Body = payload
	req.Signature = signature
	result := h.webhooks.Handle(c.Request.Context(), req)

	status := result.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, result)
}
