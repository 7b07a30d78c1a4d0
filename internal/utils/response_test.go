// internal/utils/response_test.go
package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponseCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-42")

	ConflictResponse(c, CodeOutOfStock, "Producto agotado", gin.H{"product_id": "p1"})

	assert.Equal(t, http.StatusConflict, w.Code)
	var body APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, CodeOutOfStock, body.Error.Code)
	assert.Equal(t, "req-42", body.Error.RequestID)
	assert.Equal(t, map[string]interface{}{"product_id": "p1"}, body.Error.Details)
}

func TestErrorResponseOmitsMissingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorResponse(c, http.StatusBadGateway, CodeGateway, "boom", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "request_id")
}

func TestAcceptedResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	AcceptedResponse(c, gin.H{"status": "pending"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"pending"}}`, w.Body.String())
}
