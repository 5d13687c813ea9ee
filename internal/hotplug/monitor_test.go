//go:build linux

package hotplug

import (
	"context"
	"errors"
	"testing"
)

func TestMonitorListenCancelled(t *testing.T) {
	m, err := NewMonitor(SubsystemVideo4Linux)
	if err != nil {
		t.Skipf("netlink unavailable: %v", err)
	}
	defer func() { _ = m.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan Event, 1)
	if err := m.Listen(ctx, out); !errors.Is(err, context.Canceled) {
		t.Errorf("Listen = %v, want context.Canceled", err)
	}
	if _, open := <-out; open {
		t.Error("Listen left the channel open")
	}
}

func TestMonitorSubsystemFilter(t *testing.T) {
	m := &Monitor{subsystems: []string{SubsystemVideo4Linux, SubsystemSound}}
	for subsystem, want := range map[string]bool{
		SubsystemVideo4Linux: true,
		SubsystemSound:       true,
		"usb":                false,
	} {
		if got := m.wants(subsystem); got != want {
			t.Errorf("wants(%q) = %v, want %v", subsystem, got, want)
		}
	}
	if !(&Monitor{}).wants("usb") {
		t.Error("monitor without filters dropped an event")
	}
}
