// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired      = "auth.required"
	KeyAuthInvalidToken  = "auth.invalid_token"
	KeyAuthTokenExpired  = "auth.token_expired"
	KeyAdminAccessDenied = "admin.access_denied"
	KeyRateLimited       = "rate_limit.exceeded"

	// Checkout
	KeyCheckoutCreated       = "checkout.created"
	KeyProductNotFound       = "product.not_found"
	KeyProductOutOfStock     = "product.out_of_stock"
	KeyProductInsufficient   = "product.insufficient_stock"
	KeyPaymentGatewayFailed  = "payment.gateway_failed"
	KeyPaymentNotRecorded    = "payment.not_recorded"
	KeyPaymentProviderAbsent = "payment.provider_not_found"

	// Orders
	KeyOrderNotFound = "order.not_found"

	// Webhooks
	KeyWebhookInvalidSignature = "webhook.invalid_signature"
	KeyWebhookInvalidPayload   = "webhook.invalid_payload"
	KeyWebhookBodyTooLarge     = "webhook.body_too_large"

	// Importer
	KeyImportFileRequired = "import.file_required"
	KeyImportJobNotFound  = "import_job.not_found"
	KeyImportStarted      = "import.started"
	KeyImportFailed       = "import.failed"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// File Upload
	KeyFileUploadFailed = "file.upload_failed"
	KeyFileInvalidType  = "file.invalid_type"
	KeyFileTooLarge     = "file.too_large"

	KeyInternalError = "error.internal"
)
