// Package rules owns the session's window-placement rule: one rule per
// process, created after negotiation and removed on every exit path.
package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// IDPrefix starts every rule id this tool writes.
const IDPrefix = "capture-stream-"

// PlayerClass is the window class rules match on.
const PlayerClass = "vlc"

// ErrRuleActive is returned by a second Create.
var ErrRuleActive = errors.New("window rule already created for this process")

// WindowRule pins the player window at the origin, borderless and below
// other windows.
type WindowRule struct {
	ID       string
	Title    string
	Class    string
	X, Y     int
	Width    int
	Height   int
	Below    bool
	NoBorder bool
}

// NewWindowRule builds the rule for the current process.
func NewWindowRule(pid int, title string, width, height int) WindowRule {
	return WindowRule{
		ID:       RuleID(pid),
		Title:    title,
		Class:    PlayerClass,
		Width:    width,
		Height:   height,
		Below:    true,
		NoBorder: true,
	}
}

// RuleID returns the rule id owned by pid.
func RuleID(pid int) string {
	return IDPrefix + strconv.Itoa(pid)
}

// OwnerPID extracts the pid from a rule id. ok is false for ids this tool
// did not write.
func OwnerPID(id string) (pid int, ok bool) {
	rest, found := strings.CutPrefix(id, IDPrefix)
	if !found {
		return 0, false
	}
	pid, err := strconv.Atoi(rest)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// Backend applies rules to one window manager.
type Backend interface {
	// Create registers rule. It must not leave a partial rule behind on error.
	Create(ctx context.Context, rule WindowRule) error
	// Remove deletes the rule with id. Removing an absent rule is not an error.
	Remove(ctx context.Context, id string) error
	// Reload asks the window manager to re-read its rules.
	Reload(ctx context.Context) error
}

// Ticker is implemented by backends that act while the player runs.
// n counts ticks from 1.
type Ticker interface {
	Tick(ctx context.Context, n int)
}

// FileBackend is implemented by backends that keep rules in a file.
type FileBackend interface {
	RulesFile() string
	HasRule(id string) (bool, error)
}

// Purger is implemented by backends that can clean up rules left behind.
type Purger interface {
	// PurgeStale removes rules whose owning process is gone.
	PurgeStale(ctx context.Context) ([]string, error)
	// PurgeAll removes every rule this tool wrote.
	PurgeAll(ctx context.Context) ([]string, error)
}

// processAlive reports whether pid exists. EPERM means it exists but belongs
// to another user.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

func ruleSummary(rule WindowRule) string {
	return fmt.Sprintf("%s %q %dx%d", rule.ID, rule.Title, rule.Width, rule.Height)
}

var getpid = os.Getpid
