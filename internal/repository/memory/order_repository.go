// internal/repository/memory/order_repository.go
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

// OrderRepository keys orders by gateway session id, mirroring the unique index.
type OrderRepository struct {
	mu    sync.RWMutex
	items map[string]models.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{items: make(map[string]models.Order)}
}

func (r *OrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.GatewaySessionID]; exists {
		return repository.ErrDuplicateSession
	}
	for _, existing := range r.items {
		if order.Reference != uuid.Nil && existing.Reference == order.Reference {
			return repository.ErrDuplicateReference
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.OrderStatus == "" {
		order.OrderStatus = models.OrderStatusPending
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.items[order.GatewaySessionID] = cloneOrder(*order)
	return nil
}

func (r *OrderRepository) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := cloneOrder(order)
	return &found, nil
}

func (r *OrderRepository) MarkPaid(_ context.Context, sessionID string, update repository.PaidUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[sessionID]
	if !ok || order.OrderStatus != models.OrderStatusPending {
		return false, nil
	}

	paidAt := update.PaidAt
	order.OrderStatus = models.OrderStatusPaid
	order.ShippingAddress = update.ShippingAddress
	order.PaymentMeta = update.PaymentMeta
	order.PaidAt = &paidAt
	order.UpdatedAt = time.Now()
	r.items[sessionID] = order
	return true, nil
}

func (r *OrderRepository) MarkNotified(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sessionID, order := range r.items {
		if order.ID == id {
			notifiedAt := at
			order.NotifiedAt = &notifiedAt
			r.items[sessionID] = order
			return nil
		}
	}
	return repository.ErrNotFound
}

// Count returns the number of stored orders.
func (r *OrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func cloneOrder(o models.Order) models.Order {
	o.Products = append(models.OrderLines(nil), o.Products...)
	return o
}

var _ repository.OrderRepository = (*OrderRepository)(nil)
