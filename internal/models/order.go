// internal/models/order.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is the product snapshot captured at checkout time.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Total returns price * quantity for the line.
func (l OrderLine) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderLines []OrderLine

func (l OrderLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *OrderLines) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for order lines")
	}
}

type Order struct {
	BaseModel
	Products         OrderLines      `json:"products" gorm:"type:jsonb;not null"`
	Email            string          `json:"email" gorm:"size:255;not null;index"`
	CustomerName     string          `json:"customer_name" gorm:"size:255"`
	Phone            string          `json:"phone" gorm:"size:50"`
	Total            decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null"`
	Subtotal         decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	IVA              decimal.Decimal `json:"iva" gorm:"column:iva;type:decimal(12,2);not null"`
	OrderStatus      OrderStatus     `json:"order_status" gorm:"type:varchar(20);default:'pending';index"`
	Gateway          string          `json:"gateway" gorm:"size:30;not null"`
	GatewaySessionID string          `json:"gateway_session_id" gorm:"size:255;uniqueIndex;not null"`
	Reference        uuid.UUID       `json:"reference" gorm:"type:uuid;uniqueIndex;not null"`
	ShippingAddress  JSONB           `json:"shipping_address" gorm:"type:jsonb"`
	PaymentMeta      JSONB           `json:"payment_meta" gorm:"type:jsonb"`
	UserID           *uuid.UUID      `json:"user_id" gorm:"type:uuid;index"`
	PaidAt           *time.Time      `json:"paid_at"`
	NotifiedAt       *time.Time      `json:"notified_at"`
}

func (o *Order) IsPaid() bool {
	return o.OrderStatus == OrderStatusPaid
}
