// Package logging provides structured logging with per-module log level configuration.
//
// Output goes to stderr and, when journald is reachable, to the systemd
// journal under the identifier "capture-stream". Both are used when both are
// available, so a session started from the desktop launcher still leaves a
// trace:
//
//	journalctl -t capture-stream -f
//	journalctl -t capture-stream MODULE=rules
//
// Initialize once at startup, then ask for a module logger:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{"rules": "debug"},
//	})
//	logger := logging.GetLogger("rules")
//	logger.Info("Window rule created", "rule_id", id)
//
// Loggers obtained before Initialize are kept and have their level updated
// in place.
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	rules = "debug"
//	prompt = "warn"
package logging
