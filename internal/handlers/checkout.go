// internal/handlers/checkout.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const idempotencyKeyHeader = "Idempotency-Key"

type CheckoutHandler struct {
	checkoutService *services.CheckoutService
}

func NewCheckoutHandler(checkoutService *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// POST /checkout
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	req.IdempotencyKey = c.GetHeader(idempotencyKeyHeader)

	result, err := h.checkoutService.CreateCheckout(c.Request.Context(), callerFromContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// callerFromContext reads the identity OptionalAuth left on the context.
// Anonymous callers get retail pricing.
func callerFromContext(c *gin.Context) services.Caller {
	var caller services.Caller

	if userIDStr, ok := utils.GetUserIDFromContext(c); ok {
		if userID, err := uuid.Parse(userIDStr); err == nil {
			caller.UserID = &userID
		}
	}
	if userType, ok := utils.GetUserTypeFromContext(c); ok {
		caller.Business = userType == string(models.UserTypeBusiness)
	}

	return caller
}
