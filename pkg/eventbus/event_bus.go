// Package eventbus provides event-driven communication infrastructure for
// run lifecycle notifications.
package eventbus

import (
	"context"

	"github.com/alik-grt/flowd/pkg/events"
)

// Event is anything the bus can carry. The type names the topic the
// event is published on.
type Event interface {
	GetType() events.EventType
}

// EventHandler processes one delivered event. Returning an error nacks
// the message.
type EventHandler func(ctx context.Context, event any) error

// EventPublisher is the write side of the bus.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber is the read side: Handle registers per-type handlers,
// Subscribe starts delivery until the context ends.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventBus combines both sides over one transport.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
