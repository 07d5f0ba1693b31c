// Package events publishes order lifecycle events to a message broker and
// consumes them into an append-only event log.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"
)

// Subjects lists every event type the consumer subscribes to.
var Subjects = []string{OrderPlaced, OrderStatusChanged}

type OrderEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	OccurredAt  time.Time `json:"occurredAt"`
	TheaterID   string    `json:"theaterId"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Status      string    `json:"status"`
	Total       float64   `json:"total"`
	ItemCount   int       `json:"itemCount"`
}

// NewOrderEvent stamps a fresh id and timestamp.
func NewOrderEvent(eventType string) OrderEvent {
	return OrderEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}

func (e OrderEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, OrderEvent) error { return nil }
func (Noop) Close() error                              { return nil }
