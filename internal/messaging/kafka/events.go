// internal/messaging/kafka/events.go
package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventTypeOrderPaid EventType = "order.paid"
)

const TopicOrderEvents = "storefront.order.events"

type OrderPaidLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// OrderPaidEvent is published once per order, after the paid transition commits.
type OrderPaidEvent struct {
	EventType        EventType       `json:"event_type"`
	OrderID          string          `json:"order_id"`
	Reference        string          `json:"reference"`
	Gateway          string          `json:"gateway"`
	GatewaySessionID string          `json:"gateway_session_id"`
	Email            string          `json:"email"`
	Total            decimal.Decimal `json:"total"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	IVA              decimal.Decimal `json:"iva"`
	Lines            []OrderPaidLine `json:"lines"`
	PaidAt           time.Time       `json:"paid_at"`
	Timestamp        time.Time       `json:"timestamp"`
}
