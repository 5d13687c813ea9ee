package hotplug

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/pairomaniac/capture-stream/internal/events"
	"github.com/pairomaniac/capture-stream/internal/logging"
)

// Listener is the event source a Watcher reads. *Monitor implements it.
type Listener interface {
	Listen(ctx context.Context, out chan<- Event) error
}

// Watcher publishes DeviceRemovedEvent when a watched device node goes away.
type Watcher struct {
	listener Listener
	bus      *events.Bus
	logger   *slog.Logger
}

// NewWatcher creates a watcher that reads listener and publishes on bus.
func NewWatcher(listener Listener, bus *events.Bus) *Watcher {
	return &Watcher{
		listener: listener,
		bus:      bus,
		logger:   logging.GetLogger("hotplug"),
	}
}

// WatchRemoval blocks until devicePath is removed or ctx is done. A removal
// is published once and WatchRemoval returns nil; cancellation also returns
// nil. Symlinked device paths are resolved before watching.
func (w *Watcher) WatchRemoval(ctx context.Context, devicePath string) error {
	target := devicePath
	if resolved, err := filepath.EvalSymlinks(devicePath); err == nil {
		target = resolved
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	evs := make(chan Event, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- w.listener.Listen(ctx, evs)
	}()

	w.logger.Debug("Watching device for removal", "device", target)
	for ev := range evs {
		if ev.Action != ActionRemove || ev.DevicePath() != target {
			continue
		}
		w.logger.Warn("Capture device removed", "device", target, "subsystem", ev.Subsystem)
		w.bus.Publish(events.DeviceRemovedEvent{DevicePath: devicePath, Subsystem: ev.Subsystem})
		cancel()
		for range evs {
		}
		<-errc
		return nil
	}

	err := <-errc
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
