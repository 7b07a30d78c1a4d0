// internal/utils/crypto_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyHMACSHA256(t *testing.T) {
	payload := []byte(`{"type":"order.paid"}`)
	signature := SignHMACSHA256(payload, "whsec")

	assert.True(t, VerifyHMACSHA256(payload, "whsec", signature))
	assert.True(t, VerifyHMACSHA256(payload, "whsec", "sha256="+signature))
	assert.False(t, VerifyHMACSHA256(payload, "other", signature))
	assert.False(t, VerifyHMACSHA256([]byte(`{"type":"order.created"}`), "whsec", signature))
	assert.False(t, VerifyHMACSHA256(payload, "", signature))
	assert.False(t, VerifyHMACSHA256(payload, "whsec", ""))
	assert.False(t, VerifyHMACSHA256(payload, "whsec", "not-hex"))
}

func TestHashString(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashString(""))
	assert.Len(t, HashString("idempotency"), 64)
}
