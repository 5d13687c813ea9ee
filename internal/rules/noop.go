package rules

import (
	"context"
	"log/slog"
)

// Noop is the backend for sessions without rule support.
type Noop struct {
	logger *slog.Logger
}

// NewNoop creates a no-op backend.
func NewNoop(logger *slog.Logger) *Noop {
	return &Noop{logger: logger}
}

// Create logs the request and does nothing.
func (n *Noop) Create(_ context.Context, rule WindowRule) error {
	n.logger.Debug("Window rules not available (no-op)", "rule", ruleSummary(rule))
	return nil
}

// Remove does nothing.
func (n *Noop) Remove(context.Context, string) error {
	return nil
}

// Reload does nothing.
func (n *Noop) Reload(context.Context) error {
	return nil
}
