// Package hotplug watches kernel uevents so a session can stop when its
// capture device is unplugged.
package hotplug

import (
	"bytes"
	"path"
	"strings"
)

// Uevent actions and subsystems the watcher cares about.
const (
	ActionAdd            = "add"
	ActionRemove         = "remove"
	SubsystemVideo4Linux = "video4linux"
	SubsystemSound       = "sound"
)

// Event is one kernel uevent.
type Event struct {
	Action    string
	KObj      string // sysfs path after the '@'
	Subsystem string
	DevName   string // relative to /dev, e.g. "video0"
	Env       map[string]string
}

// DevicePath returns the /dev node the event refers to, empty when the
// event carries no DEVNAME.
func (e Event) DevicePath() string {
	if e.DevName == "" {
		return ""
	}
	if strings.HasPrefix(e.DevName, "/") {
		return path.Clean(e.DevName)
	}
	return path.Join("/dev", e.DevName)
}

// ParseUEvent decodes a kernel uevent datagram of the form
// "ACTION@KOBJ\0KEY=VALUE\0...". ok is false when the header is malformed.
func ParseUEvent(data []byte) (ev Event, ok bool) {
	fields := bytes.Split(data, []byte{0})
	action, kobj, found := strings.Cut(string(fields[0]), "@")
	if !found || action == "" {
		return Event{}, false
	}

	ev = Event{Action: action, KObj: kobj, Env: make(map[string]string)}
	for _, field := range fields[1:] {
		key, value, hasValue := strings.Cut(string(field), "=")
		if !hasValue || key == "" {
			continue
		}
		ev.Env[key] = value
	}
	ev.Subsystem = ev.Env["SUBSYSTEM"]
	ev.DevName = ev.Env["DEVNAME"]
	return ev, true
}
