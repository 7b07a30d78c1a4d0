// internal/gateway/stripe.go
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/webhook"
)

const (
	ProviderStripe = "stripe"

	stripeSignatureHeader = "Stripe-Signature"

	stripeEventSessionCompleted    = "checkout.session.completed"
	stripeEventAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
)

type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	APIURL           string // empty means api.stripe.com
	Locale           string
	AllowedCountries []string
	HTTPClient       *http.Client
}

type Stripe struct {
	sessions         *session.Client
	webhookSecret    string
	locale           string
	allowedCountries []string
	logger           *logrus.Entry
}

func NewStripe(cfg StripeConfig) *Stripe {
	logger := logrus.WithField("component", "stripe-gateway")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	backendConfig := &stripe.BackendConfig{
		HTTPClient: httpClient,
		// Retrying is only safe with an idempotency key, which the caller decides on.
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger,
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}

	locale := cfg.Locale
	if locale == "" {
		locale = "es"
	}

	return &Stripe{
		sessions: &session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
			Key: cfg.SecretKey,
		},
		webhookSecret:    cfg.WebhookSecret,
		locale:           locale,
		allowedCountries: cfg.AllowedCountries,
		logger:           logger,
	}
}

func (g *Stripe) Name() string {
	return ProviderStripe
}

func (g *Stripe) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.Reference),
		Locale:             stripe.String(g.locale),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}

	if req.Buyer.Email != "" {
		params.CustomerEmail = stripe.String(req.Buyer.Email)
	}

	if len(g.allowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(g.allowedCountries),
		}
	}

	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:     stripe.String(item.Name),
					Metadata: map[string]string{"product_id": item.ProductID},
				},
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params.AddMetadata("reference", req.Reference)
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	s, err := g.sessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, &APIError{
				Provider:   ProviderStripe,
				StatusCode: stripeErr.HTTPStatusCode,
				Message:    stripeErr.Msg,
			}
		}
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}

	return &Session{ID: s.ID, RedirectURL: s.URL}, nil
}

func (g *Stripe) VerifyEvent(payload []byte, header http.Header) error {
	if g.webhookSecret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	if err := webhook.ValidatePayload(payload, header.Get(stripeSignatureHeader), g.webhookSecret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

type stripeEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeCheckoutSession struct {
	ID                string                 `json:"id"`
	ClientReferenceID string                 `json:"client_reference_id"`
	PaymentStatus     string                 `json:"payment_status"`
	Currency          string                 `json:"currency"`
	AmountTotal       int64                  `json:"amount_total"`
	AmountSubtotal    int64                  `json:"amount_subtotal"`
	ShippingDetails   map[string]interface{} `json:"shipping_details"`
	TotalDetails      *struct {
		AmountDiscount int64 `json:"amount_discount"`
		AmountShipping int64 `json:"amount_shipping"`
		AmountTax      int64 `json:"amount_tax"`
	} `json:"total_details"`
	CustomerDetails *struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"customer_details"`
}

func (g *Stripe) ParseEvent(payload []byte) (*Event, error) {
	var envelope stripeEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode stripe event: %w", err)
	}
	if envelope.Type == "" {
		return nil, errors.New("stripe event has no type")
	}

	event := &Event{ID: envelope.ID, Type: envelope.Type, Kind: EventIgnored}

	if envelope.Type != stripeEventSessionCompleted && envelope.Type != stripeEventAsyncPaymentSucceed {
		return event, nil
	}

	var cs stripeCheckoutSession
	if err := json.Unmarshal(envelope.Data.Object, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode stripe checkout session: %w", err)
	}

	// A completed session with a delayed method (OXXO) is still unpaid.
	if envelope.Type == stripeEventSessionCompleted &&
		cs.PaymentStatus != string(stripe.CheckoutSessionPaymentStatusPaid) {
		g.logger.WithFields(logrus.Fields{
			"event_id":       envelope.ID,
			"session_id":     cs.ID,
			"payment_status": cs.PaymentStatus,
		}).Info("Checkout session completed without payment, waiting for async confirmation")
		return event, nil
	}

	if cs.ID == "" {
		return nil, errors.New("stripe checkout session has no id")
	}

	event.Kind = EventPaymentSucceeded
	event.CorrelationID = cs.ID
	event.Shipping = cs.ShippingDetails

	breakdown := map[string]interface{}{
		"provider":        ProviderStripe,
		"event_id":        envelope.ID,
		"currency":        cs.Currency,
		"payment_status":  cs.PaymentStatus,
		"amount_total":    cs.AmountTotal,
		"amount_subtotal": cs.AmountSubtotal,
	}
	if cs.TotalDetails != nil {
		breakdown["amount_tax"] = cs.TotalDetails.AmountTax
		breakdown["amount_shipping"] = cs.TotalDetails.AmountShipping
		breakdown["amount_discount"] = cs.TotalDetails.AmountDiscount
	}
	if cs.ClientReferenceID != "" {
		breakdown["reference"] = cs.ClientReferenceID
	}
	event.Breakdown = breakdown

	if cs.CustomerDetails != nil {
		event.CustomerEmail = cs.CustomerDetails.Email
	}

	return event, nil
}

var _ Gateway = (*Stripe)(nil)
