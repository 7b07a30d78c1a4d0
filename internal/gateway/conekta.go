// internal/gateway/conekta.go
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/guonaihong/gout"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/utils"
)

const (
	ProviderConekta = "conekta"

	conektaDigestHeader = "Digest"
	conektaAccept       = "application/vnd.conekta-v2.1.0+json"

	conektaEventPing      = "webhook_ping"
	conektaEventOrderPaid = "order.paid"
)

type ConektaConfig struct {
	PrivateKey    string
	WebhookSecret string
	APIURL        string
	HTTPClient    *http.Client
}

type Conekta struct {
	privateKey    string
	webhookSecret string
	apiURL        string
	httpClient    *http.Client
	logger        *logrus.Entry
}

func NewConekta(cfg ConektaConfig) *Conekta {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.conekta.io"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Conekta{
		privateKey:    cfg.PrivateKey,
		webhookSecret: cfg.WebhookSecret,
		apiURL:        apiURL,
		httpClient:    httpClient,
		logger:        logrus.WithField("component", "conekta-gateway"),
	}
}

func (g *Conekta) Name() string {
	return ProviderConekta
}

type conektaLineItem struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int64  `json:"quantity"`
	SKU       string `json:"sku,omitempty"`
}

type conektaOrderRequest struct {
	Currency     string            `json:"currency"`
	CustomerInfo conektaCustomer   `json:"customer_info"`
	LineItems    []conektaLineItem `json:"line_items"`
	Checkout     struct {
		Type                  string   `json:"type"`
		AllowedPaymentMethods []string `json:"allowed_payment_methods"`
		SuccessURL            string   `json:"success_url"`
		FailureURL            string   `json:"failure_url"`
	} `json:"checkout"`
	Metadata map[string]string `json:"metadata"`
}

type conektaCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type conektaOrderResponse struct {
	ID       string `json:"id"`
	Checkout struct {
		URL string `json:"url"`
	} `json:"checkout"`
	Type    string `json:"type"`
	Details []struct {
		Message string `json:"message"`
	} `json:"details"`
}

func (g *Conekta) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body := conektaOrderRequest{
		Currency: strings.ToUpper(req.Currency),
		CustomerInfo: conektaCustomer{
			Name:  req.Buyer.Name,
			Email: req.Buyer.Email,
			Phone: req.Buyer.Phone,
		},
		Metadata: map[string]string{"reference": req.Reference},
	}
	body.Checkout.Type = "HostedPayment"
	body.Checkout.AllowedPaymentMethods = []string{"card"}
	body.Checkout.SuccessURL = req.SuccessURL
	body.Checkout.FailureURL = req.CancelURL

	for _, item := range req.Items {
		body.LineItems = append(body.LineItems, conektaLineItem{
			Name:      item.Name,
			UnitPrice: item.UnitAmount,
			Quantity:  item.Quantity,
			SKU:       item.ProductID,
		})
	}

	headers := gout.H{
		"Authorization": "Bearer " + g.privateKey,
		"Accept":        conektaAccept,
	}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}

	var out conektaOrderResponse
	var code int
	err := gout.New(g.httpClient).
		POST(g.apiURL + "/orders").
		WithContext(ctx).
		SetHeader(headers).
		SetJSON(body).
		BindJSON(&out).
		Code(&code).
		Do()
	if err != nil {
		if code >= http.StatusBadRequest {
			return nil, &APIError{Provider: ProviderConekta, StatusCode: code, Message: err.Error()}
		}
		return nil, fmt.Errorf("failed to create conekta order: %w", err)
	}

	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		g.logger.WithFields(logrus.Fields{
			"status":    code,
			"reference": req.Reference,
		}).Warn("Conekta rejected order creation")
		return nil, &APIError{Provider: ProviderConekta, StatusCode: code, Message: out.errorMessage()}
	}
	if out.ID == "" {
		return nil, &APIError{Provider: ProviderConekta, StatusCode: code, Message: "order id missing from response"}
	}

	return &Session{ID: out.ID, RedirectURL: out.Checkout.URL}, nil
}

func (r conektaOrderResponse) errorMessage() string {
	messages := make([]string, 0, len(r.Details))
	for _, d := range r.Details {
		if d.Message != "" {
			messages = append(messages, d.Message)
		}
	}
	if len(messages) == 0 {
		if r.Type != "" {
			return r.Type
		}
		return "unexpected response"
	}
	return strings.Join(messages, "; ")
}

// VerifyEvent checks a hex HMAC-SHA256 of the raw body carried in the Digest header.
func (g *Conekta) VerifyEvent(payload []byte, header http.Header) error {
	if !utils.VerifyHMACSHA256(payload, g.webhookSecret, header.Get(conektaDigestHeader)) {
		return ErrInvalidSignature
	}
	return nil
}

type conektaEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type conektaOrder struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	PaymentState string `json:"payment_status"`
	CustomerInfo *struct {
		Email string `json:"email"`
	} `json:"customer_info"`
	ShippingContact map[string]interface{} `json:"shipping_contact"`
	TaxLines        []struct {
		Amount int64 `json:"amount"`
	} `json:"tax_lines"`
	ShippingLines []struct {
		Amount int64 `json:"amount"`
	} `json:"shipping_lines"`
}

func (g *Conekta) ParseEvent(payload []byte) (*Event, error) {
	var envelope conektaEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode conekta event: %w", err)
	}
	if envelope.Type == "" {
		return nil, errors.New("conekta event has no type")
	}

	event := &Event{ID: envelope.ID, Type: envelope.Type, Kind: EventIgnored}

	switch envelope.Type {
	case conektaEventPing:
		event.Kind = EventPing
		return event, nil
	case conektaEventOrderPaid:
	default:
		return event, nil
	}

	var order conektaOrder
	if err := json.Unmarshal(envelope.Data.Object, &order); err != nil {
		return nil, fmt.Errorf("failed to decode conekta order: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("conekta order has no id")
	}

	var tax, shipping int64
	for _, line := range order.TaxLines {
		tax += line.Amount
	}
	for _, line := range order.ShippingLines {
		shipping += line.Amount
	}

	event.Kind = EventPaymentSucceeded
	event.CorrelationID = order.ID
	event.Shipping = order.ShippingContact
	event.Breakdown = map[string]interface{}{
		"provider":        ProviderConekta,
		"event_id":        envelope.ID,
		"currency":        order.Currency,
		"payment_status":  order.PaymentState,
		"amount_total":    order.Amount,
		"amount_tax":      tax,
		"amount_shipping": shipping,
	}
	if order.CustomerInfo != nil {
		event.CustomerEmail = order.CustomerInfo.Email
	}

	return event, nil
}

var _ Gateway = (*Conekta)(nil)
