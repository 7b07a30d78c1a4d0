// internal/gateway/gateway.go
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownProvider  = errors.New("unknown payment provider")
)

// APIError is a non-2xx reply from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// LineItem amounts are in minor currency units (centavos).
type LineItem struct {
	ProductID  string
	Name       string
	UnitAmount int64
	Quantity   int64
}

type Buyer struct {
	Email string
	Name  string
	Phone string
}

type SessionRequest struct {
	Reference      string
	IdempotencyKey string
	Currency       string
	Items          []LineItem
	Buyer          Buyer
	SuccessURL     string
	CancelURL      string
}

// Session is what the provider hands back after creating a hosted checkout.
// ID is the correlation id later echoed by the webhook.
type Session struct {
	ID          string
	RedirectURL string
}

type EventKind string

const (
	EventPing             EventKind = "payment-verification-ping"
	EventPaymentSucceeded EventKind = "payment-succeeded"
	EventIgnored          EventKind = "ignored"
)

// Event is a provider webhook reduced to what reconciliation needs.
type Event struct {
	ID            string
	Type          string
	Kind          EventKind
	CorrelationID string
	CustomerEmail string
	Shipping      map[string]interface{}
	Breakdown     map[string]interface{}
}

// Gateway is the capability set a payment provider must offer.
type Gateway interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// VerifyEvent returns ErrInvalidSignature when the payload was not signed by the provider.
	VerifyEvent(payload []byte, header http.Header) error
	ParseEvent(payload []byte) (*Event, error)
}

// Registry resolves gateways by provider name.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gateways {
		r.Register(g)
	}
	return r
}

func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
}

func (r *Registry) Get(name string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return g, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
