// internal/handlers/order.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// OrderStatusResponse is what the success page needs; contact and payment
// details stay server side.
type OrderStatusResponse struct {
	ID          uuid.UUID          `json:"id"`
	Reference   uuid.UUID          `json:"reference"`
	OrderStatus models.OrderStatus `json:"order_status"`
	Products    models.OrderLines  `json:"products"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	IVA         decimal.Decimal    `json:"iva"`
	Total       decimal.Decimal    `json:"total"`
	PaidAt      *time.Time         `json:"paid_at"`
	CreatedAt   time.Time          `json:"created_at"`
}

// GET /orders/session/:sessionId
func (h *OrderHandler) GetOrderBySession(c *gin.Context) {
	order, err := h.orderService.GetBySession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, OrderStatusResponse{
		ID:          order.ID,
		Reference:   order.Reference,
		OrderStatus: order.OrderStatus,
		Products:    order.Products,
		Subtotal:    order.Subtotal,
		IVA:         order.IVA,
		Total:       order.Total,
		PaidAt:      order.PaidAt,
		CreatedAt:   order.CreatedAt,
	})
}
