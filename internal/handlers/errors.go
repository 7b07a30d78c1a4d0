// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

var notFoundKeys = map[string]string{
	"product":          i18n.KeyProductNotFound,
	"order":            i18n.KeyOrderNotFound,
	"import job":       i18n.KeyImportJobNotFound,
	"payment provider": i18n.KeyPaymentProviderAbsent,
}

// respondError maps service errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var (
		validationErr   *services.ValidationError
		notFoundErr     *services.NotFoundError
		outOfStockErr   *services.OutOfStockError
		insufficientErr *services.InsufficientStockError
		gatewayErr      *services.GatewayError
		signatureErr    *services.InvalidSignatureError
		persistenceErr  *services.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		var details interface{} = validationErr.Message
		if len(validationErr.Fields) > 0 {
			details = validationErr.Fields
		}
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeValidation, i18n.T(lang, i18n.KeyValidationInvalid, "input"), details)

	case errors.As(err, &notFoundErr):
		utils.NotFoundResponse(c, notFoundKeys[notFoundErr.Resource], gin.H{"id": notFoundErr.ID})

	case errors.As(err, &outOfStockErr):
		utils.ConflictResponse(c, utils.CodeOutOfStock, i18n.T(lang, i18n.KeyProductOutOfStock, outOfStockErr.Name),
			gin.H{"product_id": outOfStockErr.ProductID})

	case errors.As(err, &insufficientErr):
		utils.ConflictResponse(c, utils.CodeInsufficientStock,
			i18n.T(lang, i18n.KeyProductInsufficient, insufficientErr.Available, insufficientErr.Name),
			gin.H{
				"product_id": insufficientErr.ProductID,
				"requested":  insufficientErr.Requested,
				"available":  insufficientErr.Available,
			})

	case errors.As(err, &gatewayErr):
		logrus.WithError(err).WithField("provider", gatewayErr.Provider).Error("Payment gateway call failed")
		utils.ErrorResponse(c, http.StatusBadGateway, utils.CodeGateway, i18n.T(lang, i18n.KeyPaymentGatewayFailed), nil)

	case errors.As(err, &signatureErr):
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeInvalidSignature, i18n.T(lang, i18n.KeyWebhookInvalidSignature), nil)

	case errors.As(err, &persistenceErr):
		logrus.WithError(err).WithField("session_id", persistenceErr.SessionID).Error("Persistence failure")
		if persistenceErr.SessionID != "" {
			utils.ErrorResponse(c, http.StatusInternalServerError, utils.CodeOrderNotRecorded, i18n.T(lang, i18n.KeyPaymentNotRecorded),
				gin.H{"session_id": persistenceErr.SessionID})
			return
		}
		utils.InternalErrorResponse(c, "")

	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled error")
		utils.InternalErrorResponse(c, "")
	}
}
