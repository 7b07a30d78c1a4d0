// internal/repository/order_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/models"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return translateError(r.db.WithContext(ctx).Create(order).Error)
}

func (r *orderRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("gateway_session_id = ?", sessionID).First(&order).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, sessionID string, update PaidUpdate) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("gateway_session_id = ? AND order_status = ?", sessionID, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"order_status":     models.OrderStatusPaid,
			"shipping_address": update.ShippingAddress,
			"payment_meta":     update.PaymentMeta,
			"paid_at":          update.PaidAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepository) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("notified_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to mark order notified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
