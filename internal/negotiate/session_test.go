package negotiate

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pairomaniac/capture-stream/internal/capability"
	"github.com/pairomaniac/capture-stream/internal/events"
	"github.com/pairomaniac/capture-stream/internal/logging"
	"github.com/pairomaniac/capture-stream/internal/player"
	"github.com/pairomaniac/capture-stream/internal/rules"
	"gopkg.in/ini.v1"
)

const foreignRules = `[General]
count=1
rules=firefox-pip

[firefox-pip]
wmclass=firefox
`

// countingBackend is a real KWin backend on a temp file that also counts
// calls.
type countingBackend struct {
	*rules.KWin

	mu      sync.Mutex
	created []rules.WindowRule
	removes int
}

func newCountingBackend(t *testing.T, path string) *countingBackend {
	t.Helper()
	if err := os.WriteFile(path, []byte(foreignRules), 0o644); err != nil {
		t.Fatal(err)
	}
	return &countingBackend{KWin: rules.NewKWin(path, nil, 1, logging.GetLogger("rules"))}
}

func (b *countingBackend) Create(ctx context.Context, rule rules.WindowRule) error {
	b.mu.Lock()
	b.created = append(b.created, rule)
	b.mu.Unlock()
	return b.KWin.Create(ctx, rule)
}

func (b *countingBackend) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	b.removes++
	b.mu.Unlock()
	return b.KWin.Remove(ctx, id)
}

func (b *countingBackend) createdRules() []rules.WindowRule {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]rules.WindowRule(nil), b.created...)
}

func (b *countingBackend) removeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removes
}

// assertRulesRestored checks that only the foreign rule is left.
func assertRulesRestored(t *testing.T, b *countingBackend) {
	t.Helper()
	if got := b.removeCount(); got != 1 {
		t.Errorf("removes = %d, want exactly 1", got)
	}
	cfg, err := ini.Load(b.RulesFile())
	if err != nil {
		t.Fatal(err)
	}
	general := cfg.Section("General")
	if got := general.Key("count").String(); got != "1" {
		t.Errorf("count = %q, want 1", got)
	}
	if got := general.Key("rules").String(); got != "firefox-pip" {
		t.Errorf("rules = %q, want firefox-pip", got)
	}
	for _, name := range cfg.SectionStrings() {
		if _, ours := rules.OwnerPID(name); ours {
			t.Errorf("rule section %s left behind", name)
		}
	}
}

func fhdSelection() Selection {
	return Selection{
		VideoDevice: "/dev/video2",
		AudioDevice: "hw:2,0",
		Format:      "NV12",
		Resolution:  capability.Resolution{Width: 1920, Height: 1080},
		FPS:         60,
		ColorSpace:  "SDR",
		LatencyMs:   20,
	}
}

func sessionHarness(t *testing.T) *harness {
	return newHarness(t, fhdProbe(), WithTickInterval(5*time.Millisecond), WithWatchDebounce(10*time.Millisecond))
}

func TestSessionNormalExit(t *testing.T) {
	h := sessionHarness(t)

	code, err := h.negotiator.Session(context.Background(), fhdSelection())
	if err != nil || code != 0 {
		t.Fatalf("Session = %d, %v", code, err)
	}
	if h.manager.State() != rules.Removed {
		t.Errorf("state = %v, want removed", h.manager.State())
	}
	assertRulesRestored(t, h.backend)
}

func TestSessionRuleExistsWhilePlayerRuns(t *testing.T) {
	h := sessionHarness(t)
	var present bool
	h.launcher.launch = func(context.Context, player.Params) (int, error) {
		present, _ = h.backend.HasRule(h.manager.Rule().ID)
		return 0, nil
	}

	if _, err := h.negotiator.Session(context.Background(), fhdSelection()); err != nil {
		t.Fatal(err)
	}
	if !present {
		t.Error("rule not on disk while the player ran")
	}
	assertRulesRestored(t, h.backend)
}

func TestSessionCancelled(t *testing.T) {
	h := sessionHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	h.launcher.launch = func(ctx context.Context, _ player.Params) (int, error) {
		close(started)
		<-ctx.Done()
		return 137, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.negotiator.Session(ctx, fhdSelection())
		done <- err
	}()

	<-started
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Session after cancel = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Session did not return after cancel")
	}
	assertRulesRestored(t, h.backend)
}

func TestSessionPlayerError(t *testing.T) {
	h := sessionHarness(t)
	h.launcher.launch = func(context.Context, player.Params) (int, error) {
		return 1, &player.ExitError{Code: 1, Tail: []string{"main error: no v4l2 device"}}
	}

	code, err := h.negotiator.Session(context.Background(), fhdSelection())
	var exitErr *player.ExitError
	if !errors.As(err, &exitErr) || code != 1 {
		t.Fatalf("Session = %d, %v; want ExitError code 1", code, err)
	}
	assertRulesRestored(t, h.backend)
}

func TestSessionPanic(t *testing.T) {
	h := sessionHarness(t)
	h.launcher.launch = func(context.Context, player.Params) (int, error) {
		panic("launcher exploded")
	}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("panic was swallowed")
			}
		}()
		_, _ = h.negotiator.Session(context.Background(), fhdSelection())
	}()
	assertRulesRestored(t, h.backend)
}

func TestSessionSecondCreateRejected(t *testing.T) {
	h := sessionHarness(t)
	if _, err := h.negotiator.Session(context.Background(), fhdSelection()); err != nil {
		t.Fatal(err)
	}
	if _, err := h.negotiator.Session(context.Background(), fhdSelection()); !errors.Is(err, rules.ErrRuleActive) {
		t.Fatalf("second Session = %v, want ErrRuleActive", err)
	}
	if len(h.launcher.params) != 1 {
		t.Errorf("launches = %d, want 1", len(h.launcher.params))
	}
	assertRulesRestored(t, h.backend)
}

// removalWatcher reports the device gone once the session is running.
type removalWatcher struct {
	bus *events.Bus
}

func (w removalWatcher) WatchRemoval(ctx context.Context, devicePath string) error {
	w.bus.Publish(events.DeviceRemovedEvent{DevicePath: devicePath, Subsystem: "video4linux"})
	<-ctx.Done()
	return nil
}

func TestSessionDeviceRemoved(t *testing.T) {
	h := sessionHarness(t)
	h.negotiator.deps.Hotplug = removalWatcher{bus: h.negotiator.deps.Bus}
	h.launcher.launch = func(ctx context.Context, _ player.Params) (int, error) {
		select {
		case <-ctx.Done():
			return 137, nil
		case <-time.After(5 * time.Second):
			return 0, errors.New("player was not stopped")
		}
	}

	code, err := h.negotiator.Session(context.Background(), fhdSelection())
	if !errors.Is(err, ErrDeviceRemoved) {
		t.Fatalf("Session = %d, %v; want ErrDeviceRemoved", code, err)
	}
	assertRulesRestored(t, h.backend)
}

func TestWindowTitle(t *testing.T) {
	got := WindowTitle(capability.Resolution{Width: 3840, Height: 2160}, "1a2b3c4d")
	if got != "Capture Stream 3840x2160 [1a2b3c4d]" {
		t.Errorf("WindowTitle = %q", got)
	}
}
