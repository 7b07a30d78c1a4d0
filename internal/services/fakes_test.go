// internal/services/fakes_test.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/gateway"
	"github.com/javajoker/storefront-backend/internal/messaging/kafka"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/repository"
)

const fakeSignatureHeader = "X-Fake-Signature"

// fakeGateway hands out sequential sessions and accepts events signed "ok".
// With replay set, a repeated idempotency key returns the session it got first.
type fakeGateway struct {
	mu       sync.Mutex
	name     string
	err      error
	delay    time.Duration
	replay   bool
	byKey    map[string]*gateway.Session
	requests []gateway.SessionRequest
	next     int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{name: "fake"}
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if session, ok := g.byKey[req.IdempotencyKey]; ok && g.replay {
		return session, nil
	}
	g.next++
	id := fmt.Sprintf("cs_test_%d", g.next)
	session := &gateway.Session{ID: id, RedirectURL: "https://pay.example.com/" + id}
	if g.byKey == nil {
		g.byKey = make(map[string]*gateway.Session)
	}
	g.byKey[req.IdempotencyKey] = session
	return session, nil
}

func (g *fakeGateway) VerifyEvent(_ []byte, header http.Header) error {
	if header.Get(fakeSignatureHeader) != "ok" {
		return gateway.ErrInvalidSignature
	}
	return nil
}

type fakePayload struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	CorrelationID string                 `json:"correlation_id"`
	Shipping      map[string]interface{} `json:"shipping"`
}

func (g *fakeGateway) ParseEvent(payload []byte) (*gateway.Event, error) {
	var p fakePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	event := &gateway.Event{
		ID:            p.ID,
		Type:          p.Type,
		CorrelationID: p.CorrelationID,
		Shipping:      p.Shipping,
		Breakdown:     map[string]interface{}{"provider": g.name, "event_id": p.ID},
	}
	switch p.Type {
	case "ping":
		event.Kind = gateway.EventPing
	case "paid":
		event.Kind = gateway.EventPaymentSucceeded
	default:
		event.Kind = gateway.EventIgnored
	}
	return event, nil
}

func (g *fakeGateway) Requests() []gateway.SessionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.SessionRequest(nil), g.requests...)
}

func signedHeader() http.Header {
	h := http.Header{}
	h.Set(fakeSignatureHeader, "ok")
	return h
}

func paidPayload(sessionID string) []byte {
	b, _ := json.Marshal(fakePayload{ID: "evt_" + sessionID, Type: "paid", CorrelationID: sessionID})
	return b
}

// failingOrders wraps an order repository and fails every Create.
type failingOrders struct {
	repository.OrderRepository
}

func (failingOrders) Create(context.Context, *models.Order) error {
	return errors.New("connection reset by peer")
}

// recordingHandler collects the orders handed over after the paid transition.
type recordingHandler struct {
	mu     sync.Mutex
	orders []models.Order
}

func (h *recordingHandler) OrderPaid(order *models.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders = append(h.orders, *order)
}

func (h *recordingHandler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.orders)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []uuid.UUID
	err  error
}

func (n *recordingNotifier) SendOrderConfirmation(_ context.Context, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, order.ID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*kafka.OrderPaidEvent
}

func (p *recordingPublisher) PublishOrderPaid(event *kafka.OrderPaidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// staticFetcher serves in-memory sources keyed by source string.
type staticFetcher map[string]*FetchedSource

func (f staticFetcher) Open(_ context.Context, _ models.ImportSourceType, source string) (*FetchedSource, error) {
	src, ok := f[source]
	if !ok {
		return nil, fmt.Errorf("no such source %q", source)
	}
	return src, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Payment: config.PaymentConfig{
			Provider:            "fake",
			Currency:            "mxn",
			TaxRate:             0.16,
			GatewayTimeout:      time.Second,
			SuccessPath:         "/success",
			CancelPath:          "/successError",
			NotificationWorkers: 2,
		},
		Email: config.EmailConfig{
			FromEmail: "soporte@example.com",
			ReplyTo:   "soporte@example.com",
			FromName:  "Tienda",
		},
		Importer: config.ImporterConfig{
			SentinelCategory: "Sin Clasificar",
			MaxSlugRetries:   3,
			SweepBatchSize:   5,
		},
		Frontend: config.FrontendConfig{BaseURL: "http://localhost:3000"},
	}
}
