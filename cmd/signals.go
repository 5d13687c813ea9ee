package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals end the session through context cancellation, so the
// window rule is removed before exit. SIGHUP arrives when the launching
// terminal closes and SIGQUIT from Ctrl+\; left unhandled, both terminate
// the process without running deferred cleanup.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}

// NotifyContext returns a context cancelled by the first shutdown signal.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, ShutdownSignals...)
}
