package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/fablab/backend/internal/application/billing"
	"github.com/fablab/backend/internal/interfaces/http/dto"
)

// WebhookHandler receives payment gateway event notifications.
type WebhookHandler struct {
	BaseHandler
	webhooks *appbilling.StripeWebhookService
}

func NewWebhookHandler(webhooks *appbilling.StripeWebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: NewBaseHandler(logger),
		webhooks:    webhooks,
	}
}

// Stripe handles POST /api/v1/webhooks/stripe. The raw body is needed for
// signature verification, so this endpoint never binds JSON.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "failed to read request body")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "missing Stripe-Signature header")
		return
	}

	result, err := h.webhooks.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
