// Package pubsub provides a generic publish/subscribe broker. The highlighter
// publishes damage notifications on it and the logger mirrors entries onto it.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// CreatedEvent announces a new item, e.g. a log entry.
	CreatedEvent EventType = "created"
	// DamagedEvent announces that styles changed inside a range.
	DamagedEvent EventType = "damaged"
	// RebuiltEvent announces that a whole document was re-highlighted.
	RebuiltEvent EventType = "rebuilt"
	// DisabledEvent announces that highlighting was turned off after an error.
	DisabledEvent EventType = "disabled"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
