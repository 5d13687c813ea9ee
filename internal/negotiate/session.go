package negotiate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pairomaniac/capture-stream/internal/events"
	"github.com/pairomaniac/capture-stream/internal/rules"
)

// WindowTitle returns the player window title for res and token.
func WindowTitle(res fmt.Stringer, token string) string {
	return fmt.Sprintf(windowTitleTemplate, res.String(), token)
}

// Session creates the window rule, launches the player and blocks until it
// exits. The rule is removed on every return path, after the session
// helpers have stopped.
func (n *Negotiator) Session(ctx context.Context, sel Selection) (code int, err error) {
	title := WindowTitle(sel.Resolution, n.token())
	manager := n.deps.Rules

	if createErr := manager.Create(ctx, title, sel.Resolution.Width, sel.Resolution.Height); createErr != nil {
		if errors.Is(createErr, rules.ErrRuleActive) {
			return 0, createErr
		}
		// The player is still usable without placement.
		n.logger.Warn("Launching without window rule", "error", createErr)
	}
	defer func() {
		if removeErr := manager.Remove(ctx); removeErr != nil {
			n.logger.Error("Window rule cleanup failed", "error", removeErr)
			if err == nil {
				err = removeErr
			}
		}
	}()

	sessionCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	var deviceRemoved atomic.Bool
	unsubRemoved := n.deps.Bus.Subscribe(func(e events.DeviceRemovedEvent) {
		if e.DevicePath != sel.VideoDevice {
			return
		}
		n.logger.Warn("Stopping player, capture device removed", "device", e.DevicePath)
		deviceRemoved.Store(true)
		cancel()
	})
	defer unsubRemoved()

	unsubDetached := n.deps.Bus.Subscribe(func(e events.RuleDetachedEvent) {
		n.logger.Warn("Window rule was removed by another program", "rule_id", e.RuleID, "path", e.Path)
	})
	defer unsubDetached()

	wg.Add(1)
	go func() {
		defer wg.Done()
		manager.RunTicker(sessionCtx, n.tickInterval)
	}()

	if n.deps.Hotplug != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if watchErr := n.deps.Hotplug.WatchRemoval(sessionCtx, sel.VideoDevice); watchErr != nil {
				n.logger.Warn("Hotplug monitor stopped", "error", watchErr)
			}
		}()
	}

	stopWatch, watchErr := manager.Watch(n.watchDebounce)
	if watchErr != nil {
		n.logger.Warn("Rules file watch unavailable", "error", watchErr)
	}
	defer stopWatch()

	n.logger.Info("Launching player", "title", title)
	code, err = n.deps.Launcher.Launch(sessionCtx, sel.Params(title))

	if err == nil && deviceRemoved.Load() {
		return deviceRemovedExitCode, ErrDeviceRemoved
	}
	n.logger.Info("Player exited", "code", code)
	return code, err
}
