// internal/services/webhook_service.go
package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/javajoker/storefront-backend/internal/gateway"
	"github.com/javajoker/storefront-backend/internal/metrics"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

// Ack is the body every verified webhook delivery receives.
type Ack struct {
	Received bool `json:"received"`
}

// OrderPaidHandler receives each order exactly once, right after it turns paid.
type OrderPaidHandler interface {
	OrderPaid(order *models.Order)
}

const (
	outcomeAcked        = "acked"
	outcomePaid         = "paid"
	outcomeDuplicate    = "duplicate"
	outcomeUnknownOrder = "unknown_order"
	outcomeError        = "error"
)

var shippingPlaceholder = models.JSONB{"note": "shipping details not provided by gateway"}

type WebhookService struct {
	registry *gateway.Registry
	orders   *OrderService
	products repository.ProductRepository
	onPaid   OrderPaidHandler
	metrics  *metrics.Metrics
	inflight singleflight.Group
	logger   *logrus.Entry
}

func NewWebhookService(registry *gateway.Registry, orders *OrderService, products repository.ProductRepository, onPaid OrderPaidHandler, m *metrics.Metrics) *WebhookService {
	return &WebhookService{
		registry: registry,
		orders:   orders,
		products: products,
		onPaid:   onPaid,
		metrics:  m,
		logger:   logrus.WithField("component", "webhook"),
	}
}

// HandleEvent verifies and applies one provider delivery. Only an unknown
// provider, a bad signature or an unparseable body produce an error; anything
// after that is logged and acknowledged so the provider stops redelivering.
func (s *WebhookService) HandleEvent(ctx context.Context, provider string, payload []byte, header http.Header) (*Ack, error) {
	gw, err := s.registry.Get(provider)
	if err != nil {
		if errors.Is(err, gateway.ErrUnknownProvider) {
			return nil, &NotFoundError{Resource: "payment provider", ID: provider}
		}
		return nil, err
	}

	if err := gw.VerifyEvent(payload, header); err != nil {
		s.metrics.RecordWebhookEvent(provider, "unverified", "invalid_signature")
		s.logger.WithError(err).WithField("provider", provider).Warn("Rejected webhook with invalid signature")
		return nil, &InvalidSignatureError{Provider: provider, Err: err}
	}

	event, err := gw.ParseEvent(payload)
	if err != nil {
		s.metrics.RecordWebhookEvent(provider, "unparseable", "invalid_payload")
		return nil, &ValidationError{Message: "invalid webhook payload: " + err.Error()}
	}

	logger := s.logger.WithFields(logrus.Fields{
		"provider":   provider,
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	switch event.Kind {
	case gateway.EventPing:
		logger.Info("Payment verification ping received")
		s.metrics.RecordWebhookEvent(provider, string(event.Kind), outcomeAcked)
	case gateway.EventPaymentSucceeded:
		if event.CorrelationID == "" {
			logger.Warn("Payment event without correlation id")
			s.metrics.RecordWebhookEvent(provider, string(event.Kind), outcomeUnknownOrder)
			break
		}
		// Deliveries arriving together share one reconciliation; later ones
		// fall through to the conditional update and find the order paid.
		detached := context.WithoutCancel(ctx)
		outcome, _, _ := s.inflight.Do(provider+":"+event.CorrelationID, func() (interface{}, error) {
			return s.reconcile(detached, logger, event), nil
		})
		s.metrics.RecordWebhookEvent(provider, string(event.Kind), outcome.(string))
	default:
		logger.Debug("Ignoring webhook event")
		s.metrics.RecordWebhookEvent(provider, string(event.Kind), outcomeAcked)
	}

	return &Ack{Received: true}, nil
}

func (s *WebhookService) reconcile(ctx context.Context, logger *logrus.Entry, event *gateway.Event) string {
	logger = logger.WithField("session_id", event.CorrelationID)

	existing, err := s.orders.FindByCorrelationID(ctx, event.CorrelationID)
	if err != nil {
		logger.WithError(err).Error("Failed to look up order for payment event")
		return outcomeError
	}
	if existing == nil {
		logger.Warn("Payment event for unknown order")
		return outcomeUnknownOrder
	}
	if existing.IsPaid() {
		logger.Info("Order already paid, ignoring duplicate delivery")
		return outcomeDuplicate
	}

	meta := PaymentMeta{
		ShippingAddress: shippingPlaceholder,
		Breakdown:       models.JSONB(event.Breakdown),
	}
	if len(event.Shipping) > 0 {
		meta.ShippingAddress = models.JSONB(event.Shipping)
	}

	order, applied, err := s.orders.MarkPaid(ctx, event.CorrelationID, meta)
	if err != nil {
		logger.WithError(err).Error("Failed to mark order paid")
		return outcomeError
	}
	if order == nil {
		logger.Warn("Order disappeared before it could be marked paid")
		return outcomeUnknownOrder
	}
	if !applied {
		logger.Info("Order already paid, ignoring duplicate delivery")
		return outcomeDuplicate
	}

	for _, line := range order.Products {
		if err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.metrics.RecordStockDecrementFailure()
			logger.WithError(err).WithFields(logrus.Fields{
				"product_id": line.ProductID,
				"quantity":   line.Quantity,
			}).Error("Failed to decrement stock for paid order")
		}
	}

	logger.WithField("order_id", order.ID).Info("Order marked paid")

	if s.onPaid != nil {
		s.onPaid.OrderPaid(order)
	}
	return outcomePaid
}
