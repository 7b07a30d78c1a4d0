// internal/handlers/webhook.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const defaultWebhookMaxBody = 1 << 20

type WebhookHandler struct {
	webhookService *services.WebhookService
	maxBodyBytes   int64
}

func NewWebhookHandler(webhookService *services.WebhookService, maxBodyBytes int64) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultWebhookMaxBody
	}
	return &WebhookHandler{
		webhookService: webhookService,
		maxBodyBytes:   maxBodyBytes,
	}
}

// POST /webhooks/:provider
// Signatures cover the raw body, so it is read as-is and never rebound.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, utils.CodePayloadTooLarge, i18n.T(lang, i18n.KeyWebhookBodyTooLarge), nil)
			return
		}
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWebhookInvalidPayload), nil)
		return
	}

	ack, err := h.webhookService.HandleEvent(c.Request.Context(), c.Param("provider"), payload, c.Request.Header)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWebhookInvalidPayload), validationErr.Message)
			return
		}
		respondError(c, err)
		return
	}

	// Providers expect the bare acknowledgement, not the envelope.
	c.JSON(http.StatusOK, ack)
}
