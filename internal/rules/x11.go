package rules

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/pairomaniac/capture-stream/internal/process"
)

// X11 applies the rule directly to the player window with wmctrl. There is
// no rule file: each session tick looks for the window until it appears,
// then keeps it at the rule's geometry.
type X11 struct {
	run      func(ctx context.Context, name string, args ...string) (string, error)
	exec     func(ctx context.Context, name string, args ...string) error
	lookPath func(file string) (string, error)
	logger   *slog.Logger

	mu       sync.Mutex
	rule     *WindowRule
	windowID string
}

// NewX11 creates an X11 backend that shells out to wmctrl and xprop.
func NewX11(logger *slog.Logger) *X11 {
	return &X11{
		run:      process.Output,
		exec:     process.Exec,
		lookPath: exec.LookPath,
		logger:   logger,
	}
}

// Create remembers rule until the window shows up.
func (x *X11) Create(_ context.Context, rule WindowRule) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.rule = &rule
	x.windowID = ""
	return nil
}

// Remove forgets the rule. The window keeps its geometry until it closes.
func (x *X11) Remove(context.Context, string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.rule = nil
	x.windowID = ""
	return nil
}

// Reload is a no-op; X11 has no rule store to reload.
func (x *X11) Reload(context.Context) error {
	return nil
}

// Tick finds the window by title on first sight, marks it below and
// undecorated, then moves and resizes it on every tick.
func (x *X11) Tick(ctx context.Context, _ int) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.rule == nil {
		return
	}
	if x.windowID == "" {
		id, err := x.findWindow(ctx, x.rule.Title)
		if err != nil || id == "" {
			return
		}
		x.windowID = id
		x.decorate(ctx)
	}

	geometry := fmt.Sprintf("0,%d,%d,%d,%d", x.rule.X, x.rule.Y, x.rule.Width, x.rule.Height)
	if err := x.exec(ctx, "wmctrl", "-i", "-r", x.windowID, "-e", geometry); err != nil {
		x.logger.Debug("wmctrl resize failed", "window", x.windowID, "error", err)
	}
}

// findWindow returns the id of the first window whose wmctrl line contains
// title.
func (x *X11) findWindow(ctx context.Context, title string) (string, error) {
	out, err := x.run(ctx, "wmctrl", "-l")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, title) {
			continue
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			x.logger.Debug("Player window found", "window", fields[0])
			return fields[0], nil
		}
	}
	return "", nil
}

func (x *X11) decorate(ctx context.Context) {
	if x.rule.Below {
		if err := x.exec(ctx, "wmctrl", "-i", "-r", x.windowID, "-b", "add,below"); err != nil {
			x.logger.Debug("wmctrl below failed", "window", x.windowID, "error", err)
		}
	}
	if !x.rule.NoBorder {
		return
	}
	if _, err := x.lookPath("xprop"); err != nil {
		x.logger.Debug("xprop not installed, keeping decorations")
		return
	}
	err := x.exec(ctx, "xprop", "-id", x.windowID, "-f", "_MOTIF_WM_HINTS", "32c",
		"-set", "_MOTIF_WM_HINTS", "2, 0, 0, 0, 0")
	if err != nil {
		x.logger.Debug("xprop failed", "window", x.windowID, "error", err)
	}
}
