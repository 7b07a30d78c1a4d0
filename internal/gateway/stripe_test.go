// internal/gateway/stripe_test.go
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStripeSecret = "whsec_test"

func stripeSignature(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeVerifyEvent(t *testing.T) {
	g := NewStripe(StripeConfig{WebhookSecret: testStripeSecret})
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	header := http.Header{}
	header.Set("Stripe-Signature", stripeSignature(payload, testStripeSecret, time.Now()))
	assert.NoError(t, g.VerifyEvent(payload, header))

	header.Set("Stripe-Signature", stripeSignature(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, g.VerifyEvent(payload, header), ErrInvalidSignature)

	header.Set("Stripe-Signature", stripeSignature(payload, testStripeSecret, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, g.VerifyEvent(payload, header), ErrInvalidSignature)

	assert.ErrorIs(t, g.VerifyEvent(payload, http.Header{}), ErrInvalidSignature)

	unconfigured := NewStripe(StripeConfig{})
	assert.ErrorIs(t, unconfigured.VerifyEvent(payload, header), ErrInvalidSignature)
}

func TestStripeParseEvent(t *testing.T) {
	g := NewStripe(StripeConfig{})

	t.Run("paid session", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_1",
			"type": "checkout.session.completed",
			"data": {"object": {
				"id": "cs_test_1",
				"client_reference_id": "ref-1",
				"payment_status": "paid",
				"currency": "mxn",
				"amount_total": 20000,
				"amount_subtotal": 20000,
				"total_details": {"amount_tax": 0, "amount_shipping": 0, "amount_discount": 0},
				"shipping_details": {"name": "Ana", "address": {"city": "Ixtlahuaca", "country": "MX"}},
				"customer_details": {"email": "ana@example.mx"}
			}}
		}`)

		event, err := g.ParseEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, EventPaymentSucceeded, event.Kind)
		assert.Equal(t, "cs_test_1", event.CorrelationID)
		assert.Equal(t, "ana@example.mx", event.CustomerEmail)
		assert.Equal(t, "Ana", event.Shipping["name"])
		assert.EqualValues(t, 20000, event.Breakdown["amount_total"])
		assert.Equal(t, "ref-1", event.Breakdown["reference"])
	})

	t.Run("completed but unpaid", func(t *testing.T) {
		payload := []byte(`{"id":"evt_2","type":"checkout.session.completed","data":{"object":{"id":"cs_2","payment_status":"unpaid"}}}`)
		event, err := g.ParseEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, EventIgnored, event.Kind)
	})

	t.Run("async payment succeeded", func(t *testing.T) {
		payload := []byte(`{"id":"evt_3","type":"checkout.session.async_payment_succeeded","data":{"object":{"id":"cs_3","payment_status":"paid"}}}`)
		event, err := g.ParseEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, EventPaymentSucceeded, event.Kind)
		assert.Equal(t, "cs_3", event.CorrelationID)
		assert.Nil(t, event.Shipping)
	})

	t.Run("other type", func(t *testing.T) {
		event, err := g.ParseEvent([]byte(`{"id":"evt_4","type":"charge.refunded","data":{"object":{}}}`))
		require.NoError(t, err)
		assert.Equal(t, EventIgnored, event.Kind)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := g.ParseEvent([]byte(`not json`))
		assert.Error(t, err)

		_, err = g.ParseEvent([]byte(`{"id":"evt_5"}`))
		assert.Error(t, err)
	})
}

func TestStripeCreateSession(t *testing.T) {
	var form url.Values
	var idempotencyKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		idempotencyKey = r.Header.Get("Idempotency-Key")
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_123","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_123"}`)
	}))
	defer server.Close()

	g := NewStripe(StripeConfig{SecretKey: "sk_test", APIURL: server.URL, AllowedCountries: []string{"MX"}})

	s, err := g.CreateSession(context.Background(), SessionRequest{
		Reference:      "ref-1",
		IdempotencyKey: "idem-1",
		Currency:       "mxn",
		Items:          []LineItem{{ProductID: "p-1", Name: "Filtro", UnitAmount: 10000, Quantity: 2}},
		Buyer:          Buyer{Email: "ana@example.mx"},
		SuccessURL:     "http://localhost:3000/success",
		CancelURL:      "http://localhost:3000/successError",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", s.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_123", s.RedirectURL)

	assert.Equal(t, "idem-1", idempotencyKey)
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "ref-1", form.Get("client_reference_id"))
	assert.Equal(t, "es", form.Get("locale"))
	assert.Equal(t, "10000", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "2", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "MX", form.Get("shipping_address_collection[allowed_countries][0]"))
}

func TestStripeCreateSessionAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"Invalid currency"}}`)
	}))
	defer server.Close()

	g := NewStripe(StripeConfig{SecretKey: "sk_test", APIURL: server.URL})

	_, err := g.CreateSession(context.Background(), SessionRequest{Reference: "ref-1", Currency: "xxx"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Invalid currency", apiErr.Message)
}
