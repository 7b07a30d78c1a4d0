// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

// PaymentMeta is what a successful payment event contributes to the order.
type PaymentMeta struct {
	ShippingAddress models.JSONB
	Breakdown       models.JSONB
}

type OrderService struct {
	orders repository.OrderRepository
	now    func() time.Time
}

func NewOrderService(orders repository.OrderRepository) *OrderService {
	return &OrderService{orders: orders, now: time.Now}
}

func (s *OrderService) RecordPending(ctx context.Context, order *models.Order) error {
	order.OrderStatus = models.OrderStatusPending
	if err := s.orders.Create(ctx, order); err != nil {
		return fmt.Errorf("failed to record pending order: %w", err)
	}
	return nil
}

// FindByCorrelationID looks an order up by gateway session id. Absent is (nil, nil).
func (s *OrderService) FindByCorrelationID(ctx context.Context, correlationID string) (*models.Order, error) {
	order, err := s.orders.FindBySessionID(ctx, correlationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return order, nil
}

// MarkPaid moves a pending order to paid. The bool is true only for the call
// that performed the transition; unknown orders return (nil, false, nil).
func (s *OrderService) MarkPaid(ctx context.Context, correlationID string, meta PaymentMeta) (*models.Order, bool, error) {
	applied, err := s.orders.MarkPaid(ctx, correlationID, repository.PaidUpdate{
		ShippingAddress: meta.ShippingAddress,
		PaymentMeta:     meta.Breakdown,
		PaidAt:          s.now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	order, err := s.FindByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, false, err
	}
	if order == nil {
		return nil, false, nil
	}
	return order, applied, nil
}

func (s *OrderService) MarkNotified(ctx context.Context, id uuid.UUID) error {
	if err := s.orders.MarkNotified(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to mark order notified: %w", err)
	}
	return nil
}

// GetBySession is the read path behind the success page; unknown sessions are NotFoundError.
func (s *OrderService) GetBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	order, err := s.FindByCorrelationID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &NotFoundError{Resource: "order", ID: sessionID}
	}
	return order, nil
}
