// internal/services/webhook_service_test.go
package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/storefront-backend/internal/gateway"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository/memory"
)

type WebhookServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	gateway  *fakeGateway
	handler  *recordingHandler
	checkout *CheckoutService
	service  *WebhookService
	product  *models.Product
}

func (suite *WebhookServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.NewStore()
	suite.gateway = newFakeGateway()
	suite.handler = &recordingHandler{}

	orders := NewOrderService(suite.store.Orders)
	suite.checkout = NewCheckoutService(suite.store.Products, orders, suite.gateway, nil, testConfig())
	suite.service = NewWebhookService(gateway.NewRegistry(suite.gateway), orders, suite.store.Products, suite.handler, nil)

	suite.product = &models.Product{
		Code: "A1", ProductName: "Filtro", Slug: "filtro", Active: true, Stock: 10,
		Price: decimal.NewFromInt(100),
	}
	suite.Require().NoError(suite.store.Products.Create(suite.ctx, suite.product))
}

func (suite *WebhookServiceTestSuite) checkoutOf(qty int) string {
	result, err := suite.checkout.CreateCheckout(suite.ctx, Caller{}, CheckoutRequest{
		Items: []CartItem{{ProductID: suite.product.ID, Quantity: qty}},
		Email: "cliente@example.com",
	})
	suite.Require().NoError(err)
	return result.SessionID
}

func (suite *WebhookServiceTestSuite) stock() int {
	p, err := suite.store.Products.FindByID(suite.ctx, suite.product.ID)
	suite.Require().NoError(err)
	return p.Stock
}

func (suite *WebhookServiceTestSuite) TestPaidEventMarksOrderAndDecrementsStock() {
	sessionID := suite.checkoutOf(3)

	ack, err := suite.service.HandleEvent(suite.ctx, "fake", paidPayload(sessionID), signedHeader())
	suite.Require().NoError(err)
	suite.True(ack.Received)

	order, err := suite.store.Orders.FindBySessionID(suite.ctx, sessionID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusPaid, order.OrderStatus)
	suite.NotNil(order.PaidAt)
	suite.Equal("shipping details not provided by gateway", order.ShippingAddress["note"])
	suite.Equal("fake", order.PaymentMeta["provider"])
	suite.Equal(7, suite.stock())
	suite.Equal(1, suite.handler.Count())
}

func (suite *WebhookServiceTestSuite) TestDuplicateDeliveryDecrementsOnce() {
	sessionID := suite.checkoutOf(2)

	for i := 0; i < 3; i++ {
		ack, err := suite.service.HandleEvent(suite.ctx, "fake", paidPayload(sessionID), signedHeader())
		suite.Require().NoError(err)
		suite.True(ack.Received)
	}

	suite.Equal(8, suite.stock())
	suite.Equal(1, suite.handler.Count())
}

func (suite *WebhookServiceTestSuite) TestConcurrentDuplicateDeliveriesDecrementOnce() {
	sessionID := suite.checkoutOf(4)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.service.HandleEvent(suite.ctx, "fake", paidPayload(sessionID), signedHeader())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		suite.NoError(err)
	}
	suite.Equal(6, suite.stock())
	suite.Equal(1, suite.handler.Count())
}

func (suite *WebhookServiceTestSuite) TestStockFloorsAtZero() {
	sessionID := suite.checkoutOf(8)
	// Stock changed between checkout and payment, e.g. by a re-import.
	p, err := suite.store.Products.FindByID(suite.ctx, suite.product.ID)
	suite.Require().NoError(err)
	p.Stock = 3
	suite.Require().NoError(suite.store.Products.UpdateFromImport(suite.ctx, p))

	_, err = suite.service.HandleEvent(suite.ctx, "fake", paidPayload(sessionID), signedHeader())
	suite.Require().NoError(err)
	suite.Equal(0, suite.stock())
}

func (suite *WebhookServiceTestSuite) TestUnknownCorrelationIDIsAckedWithoutChanges() {
	sessionID := suite.checkoutOf(1)

	ack, err := suite.service.HandleEvent(suite.ctx, "fake", paidPayload("cs_unknown"), signedHeader())
	suite.Require().NoError(err)
	suite.True(ack.Received)

	order, err := suite.store.Orders.FindBySessionID(suite.ctx, sessionID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusPending, order.OrderStatus)
	suite.Equal(10, suite.stock())
	suite.Equal(0, suite.handler.Count())
}

func (suite *WebhookServiceTestSuite) TestInvalidSignatureIsRejected() {
	sessionID := suite.checkoutOf(1)

	_, err := suite.service.HandleEvent(suite.ctx, "fake", paidPayload(sessionID), http.Header{})

	var sigErr *InvalidSignatureError
	suite.Require().True(errors.As(err, &sigErr))
	suite.ErrorIs(err, gateway.ErrInvalidSignature)

	order, err := suite.store.Orders.FindBySessionID(suite.ctx, sessionID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusPending, order.OrderStatus)
}

func (suite *WebhookServiceTestSuite) TestPingAndIgnoredEventsAreAcked() {
	for _, body := range []string{`{"id":"evt_1","type":"ping"}`, `{"id":"evt_2","type":"charge.refunded","correlation_id":"cs_test_1"}`} {
		ack, err := suite.service.HandleEvent(suite.ctx, "fake", []byte(body), signedHeader())
		suite.Require().NoError(err)
		suite.True(ack.Received)
	}
	suite.Equal(0, suite.handler.Count())
}

func (suite *WebhookServiceTestSuite) TestMalformedPayload() {
	_, err := suite.service.HandleEvent(suite.ctx, "fake", []byte("{not json"), signedHeader())
	var validationErr *ValidationError
	suite.True(errors.As(err, &validationErr))
}

func (suite *WebhookServiceTestSuite) TestUnknownProvider() {
	_, err := suite.service.HandleEvent(suite.ctx, "paypal", []byte("{}"), signedHeader())
	var notFound *NotFoundError
	suite.True(errors.As(err, &notFound))
}

func (suite *WebhookServiceTestSuite) TestShippingFromEventIsStored() {
	sessionID := suite.checkoutOf(1)
	body := `{"id":"evt_9","type":"paid","correlation_id":"` + sessionID + `","shipping":{"city":"Guadalajara"}}`

	_, err := suite.service.HandleEvent(suite.ctx, "fake", []byte(body), signedHeader())
	suite.Require().NoError(err)

	order, err := suite.store.Orders.FindBySessionID(suite.ctx, sessionID)
	suite.Require().NoError(err)
	suite.Equal("Guadalajara", order.ShippingAddress["city"])
}

func (suite *WebhookServiceTestSuite) TestHandlerCancellationDoesNotAbortReconciliation() {
	sessionID := suite.checkoutOf(1)
	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := suite.service.HandleEvent(ctx, "fake", paidPayload(sessionID), signedHeader())
	suite.Require().NoError(err)

	order, err := suite.store.Orders.FindBySessionID(suite.ctx, sessionID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusPaid, order.OrderStatus)
}

func TestWebhookServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookServiceTestSuite))
}
