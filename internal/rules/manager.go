package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pairomaniac/capture-stream/internal/config"
	"github.com/pairomaniac/capture-stream/internal/events"
	"github.com/pairomaniac/capture-stream/internal/logging"
)

// State is the lifecycle state of the manager's rule.
type State int

// Rule states. Removed is terminal.
const (
	Idle State = iota
	Active
	Removed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Removed:
		return "removed"
	default:
		return "idle"
	}
}

// Manager walks Idle -> Active -> Removed over a Backend. When the session
// does not support window rules the backend is a no-op and the manager
// walks the same states.
type Manager struct {
	backend   Backend
	supported bool
	bus       *events.Bus
	pid       int
	logger    *slog.Logger

	mu    sync.Mutex
	state State
	rule  WindowRule
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEventBus publishes RuleDetachedEvent on bus.
func WithEventBus(bus *events.Bus) ManagerOption {
	return func(m *Manager) {
		m.bus = bus
	}
}

// WithPID overrides the pid used for the rule id.
func WithPID(pid int) ManagerOption {
	return func(m *Manager) {
		m.pid = pid
	}
}

// NewManager creates a manager over backend.
func NewManager(backend Backend, opts ...ManagerOption) *Manager {
	_, noop := backend.(*Noop)
	m := &Manager{
		backend:   backend,
		supported: !noop,
		pid:       getpid(),
		logger:    logging.GetLogger("rules"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Supported reports whether rules have any effect in this session.
func (m *Manager) Supported() bool {
	return m.supported
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Rule returns the rule created by Create, zero before that.
func (m *Manager) Rule() WindowRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rule
}

// Create registers the session's rule and reloads the window manager.
// It succeeds only from Idle; any other state yields ErrRuleActive.
// A reload failure is logged, not returned: the rule is already written and
// Remove must still run.
func (m *Manager) Create(ctx context.Context, title string, width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Idle {
		return ErrRuleActive
	}

	rule := NewWindowRule(m.pid, title, width, height)
	if err := m.backend.Create(ctx, rule); err != nil {
		return fmt.Errorf("create window rule: %w", err)
	}
	m.rule = rule
	m.state = Active
	m.logger.Info("Window rule created", "rule", ruleSummary(rule), "supported", m.supported)

	if err := m.backend.Reload(ctx); err != nil {
		m.logger.Warn("Window manager reload failed", "error", err)
	}
	return nil
}

// Remove deletes the rule and reloads. It is a no-op in Idle and Removed.
// Cancellation of ctx is ignored so removal completes during shutdown.
func (m *Manager) Remove(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Active {
		return nil
	}
	m.state = Removed

	ctx = context.WithoutCancel(ctx)
	if err := m.backend.Remove(ctx, m.rule.ID); err != nil {
		m.logger.Error("Failed to remove window rule", "rule_id", m.rule.ID, "error", err)
		return fmt.Errorf("remove window rule: %w", err)
	}
	if err := m.backend.Reload(ctx); err != nil {
		m.logger.Warn("Window manager reload failed", "error", err)
	}
	m.logger.Info("Window rule removed", "rule_id", m.rule.ID)
	return nil
}

// Tick forwards a session tick to backends that implement Ticker.
func (m *Manager) Tick(ctx context.Context, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Active {
		return
	}
	if t, ok := m.backend.(Ticker); ok {
		t.Tick(ctx, n)
	}
}

// RunTicker ticks every interval until ctx is done. It returns when the
// loop has exited.
func (m *Manager) RunTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick(ctx, n)
		}
	}
}

// Watch watches the rules file of a file-backed backend while the rule is
// Active and publishes RuleDetachedEvent if the rule disappears. The
// returned stop function blocks until the watcher has exited.
func (m *Manager) Watch(debounce time.Duration) (stop func(), err error) {
	fb, ok := m.backend.(FileBackend)
	if !ok || m.State() != Active {
		return func() {}, nil
	}
	id := m.Rule().ID

	w := config.NewConfigWatcher(fb.RulesFile(), func(string) (bool, error) {
		return fb.HasRule(id)
	}, m.logger, config.WithDebounce[bool](debounce))

	w.OnReload(func(present bool) {
		if present || m.State() != Active {
			return
		}
		m.logger.Warn("Window rule removed externally", "rule_id", id, "path", fb.RulesFile())
		if m.bus != nil {
			m.bus.Publish(events.RuleDetachedEvent{RuleID: id, Path: fb.RulesFile()})
		}
	})

	if err := w.Start(); err != nil {
		return func() {}, fmt.Errorf("watch rules file: %w", err)
	}
	return func() {
		if err := w.Stop(); err != nil {
			m.logger.Debug("Rules watcher stop", "error", err)
		}
	}, nil
}
