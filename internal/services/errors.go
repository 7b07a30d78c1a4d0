// internal/services/errors.go
package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ValidationError reports malformed input. Fields maps field names to messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, problem := range e.Fields {
		parts = append(parts, problem)
	}
	sort.Strings(parts)
	return fmt.Sprintf("validation failed: %s (%s)", e.Message, strings.Join(parts, ", "))
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

type OutOfStockError struct {
	ProductID uuid.UUID
	Name      string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %q is out of stock", e.Name)
}

type InsufficientStockError struct {
	ProductID uuid.UUID
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %q has %d units, %d requested", e.Name, e.Available, e.Requested)
}

type GatewayError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("payment gateway %s failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("payment gateway %s failed: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

type InvalidSignatureError struct {
	Provider string
	Err      error
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid %s webhook signature: %v", e.Provider, e.Err)
}

func (e *InvalidSignatureError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage failure. SessionID is set when a gateway
// session already exists for the data that could not be stored.
type PersistenceError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("failed to %s (gateway session %s): %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
