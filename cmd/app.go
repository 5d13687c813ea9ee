package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pairomaniac/capture-stream/internal/config"
	"github.com/pairomaniac/capture-stream/internal/desktop"
	"github.com/pairomaniac/capture-stream/internal/events"
	"github.com/pairomaniac/capture-stream/internal/logging"
	"github.com/pairomaniac/capture-stream/internal/rules"
)

// app is the environment every command starts from.
type app struct {
	opts    *config.Options
	session desktop.Session
	bus     *events.Bus
	logger  *slog.Logger
}

// newApp loads options and initializes logging.
func newApp() (*app, error) {
	opts, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Initialize(opts.LoggingConfig())

	a := &app{
		opts:    opts,
		session: desktop.Detect(),
		bus:     events.New(),
		logger:  logging.GetLogger("main"),
	}
	a.logger.Debug("Session detected",
		"type", a.session.Type,
		"desktop", a.session.Desktop,
		"rule_backend", a.session.RuleBackend())
	return a, nil
}

// ruleBackend selects the window-rule backend for the session.
func (a *app) ruleBackend() rules.Backend {
	return rules.New(a.session, rules.Config{
		KWinRulesFile: a.opts.KWinRulesFile,
		Getenv:        os.Getenv,
	})
}
