// Package events provides an in-process event bus for decoupling the stream
// registry, watcher, metrics, and API layers.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(StreamStartedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Type switch so the generic Publish sees the concrete type
	switch e := ev.(type) {
	case StreamStartedEvent:
		event.Publish(b.dispatcher, e)
	case StreamStoppedEvent:
		event.Publish(b.dispatcher, e)
	case StreamCrashedEvent:
		event.Publish(b.dispatcher, e)
	case VideoAddedEvent:
		event.Publish(b.dispatcher, e)
	case VideoRemovedEvent:
		event.Publish(b.dispatcher, e)
	case NamingCollisionEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e StreamCrashedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StreamStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamCrashedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(VideoAddedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(VideoRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(NamingCollisionEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// No-op unsubscribe for unknown handler types
		return func() {}
	}
}
