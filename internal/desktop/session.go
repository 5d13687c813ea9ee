// Package desktop detects the graphical session once at startup.
package desktop

import (
	"os"
	"os/exec"
	"strings"
)

// Session types.
const (
	Wayland = "wayland"
	X11     = "x11"
)

// Backend names the window-rule mechanism available in a session.
type Backend string

// Window-rule backends.
const (
	BackendKWin Backend = "kwin"
	BackendX11  Backend = "x11"
	BackendNone Backend = "none"
)

var lookPath = exec.LookPath

// Session describes the graphical session the tool runs in.
type Session struct {
	Type    string // lower-cased XDG_SESSION_TYPE, or inferred from display vars
	Desktop string // upper-cased XDG_CURRENT_DESKTOP
}

// Detect reads the session from the process environment.
func Detect() Session {
	return DetectFrom(os.Getenv)
}

// DetectFrom reads the session through getenv.
func DetectFrom(getenv func(string) string) Session {
	s := Session{
		Type:    strings.ToLower(getenv("XDG_SESSION_TYPE")),
		Desktop: strings.ToUpper(getenv("XDG_CURRENT_DESKTOP")),
	}
	if s.Type == "" {
		switch {
		case getenv("WAYLAND_DISPLAY") != "":
			s.Type = Wayland
		case getenv("DISPLAY") != "":
			s.Type = X11
		}
	}
	return s
}

// IsKDEWayland reports a Plasma Wayland session.
func (s Session) IsKDEWayland() bool {
	return s.Type == Wayland && strings.Contains(s.Desktop, "KDE")
}

// IsX11 reports an X11 session of any desktop.
func (s Session) IsX11() bool {
	return s.Type == X11
}

// RuleBackend picks the window-rule backend for the session. X11 needs
// wmctrl on PATH.
func (s Session) RuleBackend() Backend {
	switch {
	case s.IsKDEWayland():
		return BackendKWin
	case s.IsX11():
		if _, err := lookPath("wmctrl"); err == nil {
			return BackendX11
		}
	}
	return BackendNone
}

// SupportsWindowRules reports whether rules can be applied at all.
func (s Session) SupportsWindowRules() bool {
	return s.RuleBackend() != BackendNone
}
