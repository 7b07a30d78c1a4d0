// internal/services/checkout_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/gateway"
	"github.com/javajoker/storefront-backend/internal/metrics"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// Caller is the identity behind a request, resolved by the transport layer.
type Caller struct {
	UserID   *uuid.UUID
	Business bool
}

type CartItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
}

type CheckoutRequest struct {
	Items          []CartItem `json:"items" validate:"min=1,dive"`
	Email          string     `json:"email" validate:"required,email,max=255"`
	CustomerName   string     `json:"customer_name" validate:"max=255"`
	Phone          string     `json:"phone" validate:"max=50"`
	IdempotencyKey string     `json:"-"`
}

type CheckoutResult struct {
	OrderID     uuid.UUID       `json:"order_id"`
	SessionID   string          `json:"session_id"`
	RedirectURL string          `json:"redirect_url"`
	Total       decimal.Decimal `json:"total"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	IVA         decimal.Decimal `json:"iva"`
}

// Providers cap idempotency keys at 255 characters.
const maxIdempotencyKeyLen = 255

// checkoutReferenceNamespace seeds references derived from client idempotency keys.
var checkoutReferenceNamespace = uuid.MustParse("6f1c2a54-3d8e-4b7a-9c21-5e0f8d4a7b13")

type CheckoutService struct {
	products repository.ProductRepository
	orders   *OrderService
	gateway  gateway.Gateway
	metrics  *metrics.Metrics
	config   *config.Config
	logger   *logrus.Entry
}

func NewCheckoutService(products repository.ProductRepository, orders *OrderService, gw gateway.Gateway, m *metrics.Metrics, config *config.Config) *CheckoutService {
	return &CheckoutService{
		products: products,
		orders:   orders,
		gateway:  gw,
		metrics:  m,
		config:   config,
		logger:   logrus.WithFields(logrus.Fields{"component": "checkout", "provider": gw.Name()}),
	}
}

// SplitTax extracts the tax already included in total: iva = round2(total - total/(1+rate)).
func SplitTax(total decimal.Decimal, rate float64) (subtotal, iva decimal.Decimal) {
	divisor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(rate))
	iva = total.Sub(total.Div(divisor)).Round(2)
	return total.Sub(iva), iva
}

func (s *CheckoutService) CreateCheckout(ctx context.Context, caller Caller, req CheckoutRequest) (*CheckoutResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = strings.TrimSpace(req.Phone)

	if err := utils.ValidateStruct(req); err != nil {
		s.metrics.RecordCheckout("invalid")
		return nil, newValidationError("invalid checkout request", err)
	}

	items := mergeCartItems(req.Items)

	lines, total, err := s.priceCart(ctx, caller, items)
	if err != nil {
		s.metrics.RecordCheckout("rejected")
		return nil, err
	}
	subtotal, iva := SplitTax(total, s.config.Payment.TaxRate)

	reference, idempotencyKey := checkoutReference(req.Email, req.IdempotencyKey)

	session, err := s.createSession(ctx, gateway.SessionRequest{
		Reference:      reference.String(),
		IdempotencyKey: idempotencyKey,
		Currency:       s.config.Payment.Currency,
		Items:          toLineItems(lines),
		Buyer: gateway.Buyer{
			Email: req.Email,
			Name:  req.CustomerName,
			Phone: req.Phone,
		},
		SuccessURL: s.config.SuccessURL(),
		CancelURL:  s.config.CancelURL(),
	})
	if err != nil {
		s.metrics.RecordCheckout("gateway_error")
		return nil, err
	}

	order := &models.Order{
		Products:         lines,
		Email:            req.Email,
		CustomerName:     req.CustomerName,
		Phone:            req.Phone,
		Total:            total,
		Subtotal:         subtotal,
		IVA:              iva,
		Gateway:          s.gateway.Name(),
		GatewaySessionID: session.ID,
		Reference:        reference,
		UserID:           caller.UserID,
	}

	if err := s.orders.RecordPending(ctx, order); err != nil {
		if result, ok := s.replayedCheckout(ctx, order, session, err); ok {
			return result, nil
		}
		// The buyer can pay this session but no order exists for it yet.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": session.ID,
			"reference":  reference,
			"email":      req.Email,
			"total":      total.StringFixed(2),
		}).Error("Gateway session created but order could not be stored; reconcile manually")
		s.metrics.RecordOrphanedSession(s.gateway.Name())
		s.metrics.RecordCheckout("persistence_error")
		return nil, &PersistenceError{Op: "record pending order", SessionID: session.ID, Err: err}
	}

	s.metrics.RecordCheckout("created")
	s.logger.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"session_id": session.ID,
		"total":      total.StringFixed(2),
	}).Info("Checkout session created")

	return &CheckoutResult{
		OrderID:     order.ID,
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		Total:       total,
		Subtotal:    subtotal,
		IVA:         iva,
	}, nil
}

// checkoutReference derives the order reference and the gateway idempotency key.
// A client key maps to the same reference on every retry so the gateway sees
// identical parameters; without one both are a fresh uuid.
func checkoutReference(email, clientKey string) (uuid.UUID, string) {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		reference := uuid.New()
		return reference, reference.String()
	}

	reference := uuid.NewSHA1(checkoutReferenceNamespace, []byte(email+"\x00"+clientKey))
	if len(clientKey) > maxIdempotencyKeyLen {
		clientKey = utils.HashString(clientKey)
	}
	return reference, clientKey
}

// replayedCheckout recognises a retry whose session the gateway replayed and
// whose order is already stored for the same buyer.
func (s *CheckoutService) replayedCheckout(ctx context.Context, order *models.Order, session *gateway.Session, recordErr error) (*CheckoutResult, bool) {
	if !errors.Is(recordErr, repository.ErrDuplicateSession) && !errors.Is(recordErr, repository.ErrDuplicateReference) {
		return nil, false
	}

	existing, err := s.orders.FindByCorrelationID(ctx, session.ID)
	if err != nil || existing == nil {
		return nil, false
	}
	if existing.Reference != order.Reference || existing.Email != order.Email {
		return nil, false
	}

	s.metrics.RecordCheckout("replayed")
	s.logger.WithFields(logrus.Fields{
		"order_id":   existing.ID,
		"session_id": session.ID,
	}).Info("Checkout retry matched an existing order")

	return &CheckoutResult{
		OrderID:     existing.ID,
		SessionID:   existing.GatewaySessionID,
		RedirectURL: session.RedirectURL,
		Total:       existing.Total,
		Subtotal:    existing.Subtotal,
		IVA:         existing.IVA,
	}, true
}

// mergeCartItems sums quantities of repeated products, keeping first-seen order.
func mergeCartItems(items []CartItem) []CartItem {
	merged := make([]CartItem, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

func (s *CheckoutService) priceCart(ctx context.Context, caller Caller, items []CartItem) (models.OrderLines, decimal.Decimal, error) {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	lines := make(models.OrderLines, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok || !product.Active {
			return nil, decimal.Zero, &NotFoundError{Resource: "product", ID: item.ProductID.String()}
		}
		if product.Stock <= 0 {
			return nil, decimal.Zero, &OutOfStockError{ProductID: product.ID, Name: product.ProductName}
		}
		if product.Stock < item.Quantity {
			return nil, decimal.Zero, &InsufficientStockError{
				ProductID: product.ID,
				Name:      product.ProductName,
				Requested: item.Quantity,
				Available: product.Stock,
			}
		}

		line := models.OrderLine{
			ProductID: product.ID,
			Name:      product.ProductName,
			Price:     product.UnitPrice(caller.Business),
			Quantity:  item.Quantity,
		}
		lines = append(lines, line)
		total = total.Add(line.Total())
	}

	return lines, total.Round(2), nil
}

func (s *CheckoutService) createSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	timeout := s.config.Payment.GatewayTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	session, err := s.gateway.CreateSession(callCtx, req)
	s.metrics.ObserveGatewayCall(s.gateway.Name(), "create_session", time.Since(start))

	if err == nil && (session == nil || session.ID == "") {
		err = errors.New("gateway returned no session id")
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		gwErr := &GatewayError{Provider: s.gateway.Name(), Err: err}
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) {
			gwErr.StatusCode = apiErr.StatusCode
		}
		s.logger.WithError(err).WithField("reference", req.Reference).Warn("Failed to create checkout session")
		return nil, gwErr
	}
	return session, nil
}

func toLineItems(lines models.OrderLines) []gateway.LineItem {
	items := make([]gateway.LineItem, len(lines))
	for i, line := range lines {
		items[i] = gateway.LineItem{
			ProductID:  line.ProductID.String(),
			Name:       line.Name,
			UnitAmount: line.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
			Quantity:   int64(line.Quantity),
		}
	}
	return items
}

func newValidationError(message string, err error) *ValidationError {
	fields := make(map[string]string)
	for _, e := range utils.GetValidationErrors(err) {
		fields[e.Field] = e.Message
	}
	if len(fields) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	return &ValidationError{Message: message, Fields: fields}
}
