// internal/services/order_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository/memory"
)

func TestOrderService_MarkPaidIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	service := NewOrderService(repo)
	order := paidOrder(t, repo)

	meta := PaymentMeta{ShippingAddress: models.JSONB{"city": "León"}, Breakdown: models.JSONB{"tax": 2759}}

	first, applied, err := service.MarkPaid(ctx, order.GatewaySessionID, meta)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.OrderStatusPaid, first.OrderStatus)
	require.NotNil(t, first.PaidAt)

	second, applied, err := service.MarkPaid(ctx, order.GatewaySessionID, PaymentMeta{ShippingAddress: models.JSONB{"city": "Otra"}})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, "León", second.ShippingAddress["city"])
	assert.Equal(t, *first.PaidAt, *second.PaidAt)
}

func TestOrderService_UnknownCorrelationID(t *testing.T) {
	ctx := context.Background()
	service := NewOrderService(memory.NewOrderRepository())

	order, applied, err := service.MarkPaid(ctx, "cs_missing", PaymentMeta{})
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.False(t, applied)

	found, err := service.FindByCorrelationID(ctx, "cs_missing")
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = service.GetBySession(ctx, "cs_missing")
	var notFound *NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestOrderService_RecordPendingRejectsDuplicateSession(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	service := NewOrderService(repo)
	order := paidOrder(t, repo)

	dup := *order
	dup.ID = uuid.Nil
	err := service.RecordPending(ctx, &dup)
	assert.Error(t, err)
	assert.Equal(t, 1, repo.Count())
}
