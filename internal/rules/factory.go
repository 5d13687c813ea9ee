package rules

import (
	"path/filepath"

	"github.com/pairomaniac/capture-stream/internal/desktop"
	"github.com/pairomaniac/capture-stream/internal/display"
	"github.com/pairomaniac/capture-stream/internal/logging"
)

// Config locates the files the backends use.
type Config struct {
	KWinRulesFile string // kwinrulesrc
	Getenv        func(string) string
}

// New selects the backend for session. Sessions without rule support get a
// no-op backend.
func New(session desktop.Session, cfg Config) Backend {
	logger := logging.GetLogger("rules")

	switch session.RuleBackend() {
	case desktop.BackendKWin:
		scale := display.Scale(session, display.Source{
			ConfigHome: filepath.Dir(cfg.KWinRulesFile),
			Getenv:     cfg.Getenv,
		})
		logger.Info("Using KWin window rules", "path", cfg.KWinRulesFile, "scale", scale)
		return NewKWin(cfg.KWinRulesFile, KWinDBus{}, scale, logger)

	case desktop.BackendX11:
		logger.Info("Using wmctrl window placement")
		return NewX11(logger)

	default:
		logger.Info("No window rule support, using no-op backend",
			"session", session.Type, "desktop", session.Desktop)
		return NewNoop(logger)
	}
}
