// internal/gateway/gateway_test.go
package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry(NewStripe(StripeConfig{}), NewConekta(ConektaConfig{}))

	assert.Equal(t, []string{"conekta", "stripe"}, registry.Names())

	g, err := registry.Get("stripe")
	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, g.Name())

	_, err = registry.Get("paypal")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestAPIError(t *testing.T) {
	err := &APIError{Provider: "stripe", StatusCode: 402, Message: "card declined"}
	assert.Equal(t, "stripe api error (status 402): card declined", err.Error())
}
