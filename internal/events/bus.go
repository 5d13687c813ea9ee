package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for in-process session events.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(DeviceRemovedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case DeviceRemovedEvent:
		event.Publish(b.dispatcher, e)
	case RuleDetachedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type named by its parameter
// and returns an unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e DeviceRemovedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DeviceRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RuleDetachedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
