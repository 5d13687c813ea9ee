//go:build linux

package hotplug

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// pollInterval bounds how long Listen waits before re-checking ctx.
const pollInterval = 250

// Monitor reads kernel uevents from a NETLINK_KOBJECT_UEVENT socket.
type Monitor struct {
	fd         int
	subsystems []string
}

// NewMonitor opens the uevent socket. With subsystems given, other events
// are dropped.
func NewMonitor(subsystems ...string) (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("uevent socket: %w", err)
	}
	// Group 1 is the kernel broadcast; udev rebroadcasts on group 2.
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind uevent socket: %w", err)
	}
	return &Monitor{fd: fd, subsystems: subsystems}, nil
}

// Close releases the socket.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Listen sends matching events to out until ctx is done or the socket
// fails. It closes out on return.
func (m *Monitor) Listen(ctx context.Context, out chan<- Event) error {
	defer close(out)

	buf := make([]byte, 16<<10)
	fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := unix.Poll(fds, pollInterval)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll uevent socket: %w", err)
		}
		if n == 0 {
			continue
		}

		size, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			// ENOBUFS means the kernel dropped events; keep reading.
			if errors.Is(err, unix.ENOBUFS) {
				continue
			}
			return fmt.Errorf("read uevent: %w", err)
		}

		ev, ok := ParseUEvent(buf[:size])
		if !ok || !m.wants(ev.Subsystem) {
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Monitor) wants(subsystem string) bool {
	if len(m.subsystems) == 0 {
		return true
	}
	for _, s := range m.subsystems {
		if s == subsystem {
			return true
		}
	}
	return false
}
