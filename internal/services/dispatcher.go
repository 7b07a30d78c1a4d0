// internal/services/dispatcher.go
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/messaging/kafka"
	"github.com/javajoker/storefront-backend/internal/metrics"
	"github.com/javajoker/storefront-backend/internal/models"
)

const notificationTimeout = 30 * time.Second

type OrderEventPublisher interface {
	PublishOrderPaid(event *kafka.OrderPaidEvent) error
}

// Dispatcher runs post-payment side effects on a bounded pool. Work that does
// not fit is dropped and logged; side effects never feed back into the order.
type Dispatcher struct {
	pool      *ants.Pool
	notifier  OrderNotifier
	orders    *OrderService
	publisher OrderEventPublisher
	metrics   *metrics.Metrics
	logger    *logrus.Entry
	wg        sync.WaitGroup
}

func NewDispatcher(workers int, notifier OrderNotifier, orders *OrderService, publisher OrderEventPublisher, m *metrics.Metrics) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 1
	}

	logger := logrus.WithField("component", "dispatcher")
	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p interface{}) {
			logger.WithField("panic", p).Error("Notification task panicked")
		}),
	)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		pool:      pool,
		notifier:  notifier,
		orders:    orders,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}, nil
}

// OrderPaid schedules the confirmation email and the order.paid event.
func (d *Dispatcher) OrderPaid(order *models.Order) {
	snapshot := *order

	d.wg.Add(1)
	err := d.pool.Submit(func() {
		defer d.wg.Done()
		d.deliver(&snapshot)
	})
	if err != nil {
		d.wg.Done()
		d.metrics.RecordNotification("dispatch", "dropped")
		entry := d.logger.WithError(err).WithField("order_id", order.ID)
		if errors.Is(err, ants.ErrPoolOverload) {
			entry.Warn("Notification pool is full, dropping post-payment notifications")
			return
		}
		entry.Error("Failed to schedule post-payment notifications")
	}
}

func (d *Dispatcher) deliver(order *models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
	defer cancel()

	logger := d.logger.WithFields(logrus.Fields{"order_id": order.ID, "session_id": order.GatewaySessionID})

	if d.notifier != nil {
		if err := d.notifier.SendOrderConfirmation(ctx, order); err != nil {
			d.metrics.RecordNotification("email", "failed")
			logger.WithError(err).Warn("Failed to send order confirmation")
		} else {
			d.metrics.RecordNotification("email", "sent")
			if err := d.orders.MarkNotified(ctx, order.ID); err != nil {
				logger.WithError(err).Warn("Failed to record notification time")
			}
		}
	}

	if d.publisher != nil {
		if err := d.publisher.PublishOrderPaid(orderPaidEvent(order)); err != nil {
			d.metrics.RecordNotification("kafka", "failed")
			logger.WithError(err).Warn("Failed to publish order.paid event")
		} else {
			d.metrics.RecordNotification("kafka", "sent")
		}
	}
}

// Wait blocks until every scheduled task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) Close() {
	d.wg.Wait()
	d.pool.Release()
}

func orderPaidEvent(order *models.Order) *kafka.OrderPaidEvent {
	lines := make([]kafka.OrderPaidLine, len(order.Products))
	for i, line := range order.Products {
		lines[i] = kafka.OrderPaidLine{
			ProductID: line.ProductID.String(),
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
		}
	}

	event := &kafka.OrderPaidEvent{
		EventType:        kafka.EventTypeOrderPaid,
		OrderID:          order.ID.String(),
		Reference:        order.Reference.String(),
		Gateway:          order.Gateway,
		GatewaySessionID: order.GatewaySessionID,
		Email:            order.Email,
		Total:            order.Total,
		Subtotal:         order.Subtotal,
		IVA:              order.IVA,
		Lines:            lines,
	}
	if order.PaidAt != nil {
		event.PaidAt = *order.PaidAt
	}
	return event
}
