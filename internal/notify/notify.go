// Package notify delivers post-commit shop events to outbound sinks.
//
// Delivery is best effort: sinks return an error so callers can log it,
// but nothing in this package retries or blocks a committed transaction.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds one post-commit delivery round.
const DefaultTimeout = 5 * time.Second

const (
	EventLowStock       = "stock.low"
	EventNewDebt        = "debt.new"
	EventInvoiceCreated = "invoice.created"
	EventPaymentCreated = "payment.created"
)

type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func NewEvent(eventType, text string, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Text:      text,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
