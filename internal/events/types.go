package events

// Event type constants for kelindar/event.
const (
	TypeDeviceRemoved uint32 = iota + 1
	TypeRuleDetached
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DeviceRemovedEvent is published when a capture device node disappears
// while a session is running.
type DeviceRemovedEvent struct {
	DevicePath string
	Subsystem  string
}

// Type returns the event type identifier for DeviceRemovedEvent.
func (e DeviceRemovedEvent) Type() uint32 { return TypeDeviceRemoved }

// RuleDetachedEvent is published when the session's window rule vanished
// from the rules file without the session removing it.
type RuleDetachedEvent struct {
	RuleID string
	Path   string
}

// Type returns the event type identifier for RuleDetachedEvent.
func (e RuleDetachedEvent) Type() uint32 { return TypeRuleDetached }
