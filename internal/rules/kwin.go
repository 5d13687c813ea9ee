package rules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/pairomaniac/capture-stream/internal/display"
	"gopkg.in/ini.v1"
)

const generalSection = "General"

// KWin rule match and apply policies.
const (
	matchExact     = "1"
	matchSubstring = "2"
	ruleForce      = "2"
)

// kreconfigureTick is the session tick that re-issues a reload so KWin
// applies the rule to a window that mapped after the first reload.
const kreconfigureTick = 3

func init() {
	// KConfig writes key=value without padding.
	ini.PrettyFormat = false
}

// Reloader asks the window manager to re-read its configuration.
type Reloader interface {
	Reload(ctx context.Context) error
}

// KWinDBus reloads KWin over the session bus.
type KWinDBus struct{}

// Reload calls org.kde.KWin.reconfigure on /KWin.
func (KWinDBus) Reload(ctx context.Context) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("session bus: %w", err)
	}
	obj := conn.Object("org.kde.KWin", "/KWin")
	call := obj.CallWithContext(ctx, "org.kde.KWin.reconfigure", 0)
	return call.Err
}

// KWin keeps rules in kwinrulesrc. Every mutation re-reads the file so
// concurrent edits by other tools are preserved.
type KWin struct {
	path     string
	reloader Reloader
	scale    float64
	alive    func(pid int) bool
	logger   *slog.Logger
}

// NewKWin creates a KWin backend for the rules file at path. Rule sizes are
// divided by scale to get KWin's logical pixels.
func NewKWin(path string, reloader Reloader, scale float64, logger *slog.Logger) *KWin {
	return &KWin{
		path:     path,
		reloader: reloader,
		scale:    scale,
		alive:    processAlive,
		logger:   logger,
	}
}

// RulesFile returns the kwinrulesrc path.
func (k *KWin) RulesFile() string {
	return k.path
}

func (k *KWin) load() (*ini.File, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		Loose:                   true,
		IgnoreInlineComment:     true,
		PreserveSurroundedQuote: true,
	}, k.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", k.path, err)
	}
	return cfg, nil
}

func (k *KWin) save(cfg *ini.File) error {
	if err := os.MkdirAll(filepath.Dir(k.path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(k.path), err)
	}
	if err := cfg.SaveTo(k.path); err != nil {
		return fmt.Errorf("write %s: %w", k.path, err)
	}
	return nil
}

// ruleList returns the ids in [General] rules.
func ruleList(cfg *ini.File) []string {
	general, err := cfg.GetSection(generalSection)
	if err != nil {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(keyValue(general, "rules"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ruleCount returns [General] count, falling back to the list length when
// the key is missing or malformed.
func ruleCount(cfg *ini.File, ids []string) int {
	general, err := cfg.GetSection(generalSection)
	if err != nil {
		return len(ids)
	}
	n, err := strconv.Atoi(keyValue(general, "count"))
	if err != nil || n < 0 {
		return len(ids)
	}
	return n
}

// keyValue reads a key without creating it.
func keyValue(section *ini.Section, name string) string {
	key, err := section.GetKey(name)
	if err != nil {
		return ""
	}
	return key.String()
}

func setRuleList(cfg *ini.File, ids []string, count int) {
	general := cfg.Section(generalSection)
	general.Key("rules").SetValue(strings.Join(ids, ","))
	general.Key("count").SetValue(strconv.Itoa(max(count, 0)))
}

// Create purges stale rules, then writes rule and appends it to [General].
func (k *KWin) Create(ctx context.Context, rule WindowRule) error {
	if _, err := k.PurgeStale(ctx); err != nil {
		k.logger.Warn("Stale rule cleanup failed", "error", err)
	}

	cfg, err := k.load()
	if err != nil {
		return err
	}

	width := display.Logical(rule.Width, k.scale)
	height := display.Logical(rule.Height, k.scale)

	section := cfg.Section(rule.ID)
	for _, kv := range [][2]string{
		{"Description", rule.Title},
		{"wmclass", rule.Class},
		{"wmclassmatch", matchExact},
		{"title", rule.Title},
		{"titlematch", matchSubstring},
		{"position", fmt.Sprintf("%d,%d", rule.X, rule.Y)},
		{"positionrule", ruleForce},
		{"size", fmt.Sprintf("%d,%d", width, height)},
		{"sizerule", ruleForce},
		{"below", strconv.FormatBool(rule.Below)},
		{"belowrule", ruleForce},
		{"noborder", strconv.FormatBool(rule.NoBorder)},
		{"noborderrule", ruleForce},
		{"minimize", "false"},
		{"minimizerule", ruleForce},
	} {
		section.Key(kv[0]).SetValue(kv[1])
	}

	ids := ruleList(cfg)
	count := ruleCount(cfg, ids)
	if !slices.Contains(ids, rule.ID) {
		ids = append(ids, rule.ID)
		count++
	}
	setRuleList(cfg, ids, count)

	if err := k.save(cfg); err != nil {
		return err
	}
	k.logger.Debug("KWin rule written", "rule_id", rule.ID, "size", fmt.Sprintf("%dx%d", width, height), "scale", k.scale)
	return nil
}

// Remove deletes the rule section and its [General] entry.
func (k *KWin) Remove(_ context.Context, id string) error {
	if _, err := os.Stat(k.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	cfg, err := k.load()
	if err != nil {
		return err
	}
	if !removeRules(cfg, []string{id}) {
		return nil
	}
	return k.save(cfg)
}

// removeRules deletes the given ids from cfg. It reports whether anything
// changed. The count drops by one per id taken off the list.
func removeRules(cfg *ini.File, ids []string) bool {
	changed := false
	for _, id := range ids {
		if cfg.HasSection(id) {
			cfg.DeleteSection(id)
			changed = true
		}
	}

	list := ruleList(cfg)
	count := ruleCount(cfg, list)
	kept := make([]string, 0, len(list))
	for _, existing := range list {
		if slices.Contains(ids, existing) {
			count--
			continue
		}
		kept = append(kept, existing)
	}
	if len(kept) != len(list) {
		setRuleList(cfg, kept, count)
		changed = true
	}
	return changed
}

// Reload asks KWin to re-read its rules.
func (k *KWin) Reload(ctx context.Context) error {
	if k.reloader == nil {
		return nil
	}
	return k.reloader.Reload(ctx)
}

// Tick re-issues the reload once the player window had time to map.
func (k *KWin) Tick(ctx context.Context, n int) {
	if n != kreconfigureTick {
		return
	}
	if err := k.Reload(ctx); err != nil {
		k.logger.Debug("Delayed reload failed", "error", err)
	}
}

// HasRule reports whether the rule section exists on disk.
func (k *KWin) HasRule(id string) (bool, error) {
	cfg, err := k.load()
	if err != nil {
		return false, err
	}
	return cfg.HasSection(id), nil
}

// PurgeStale removes rules whose owning process no longer exists.
func (k *KWin) PurgeStale(ctx context.Context) ([]string, error) {
	return k.purge(ctx, func(pid int) bool { return !k.alive(pid) })
}

// PurgeAll removes every rule written by this tool.
func (k *KWin) PurgeAll(ctx context.Context) ([]string, error) {
	return k.purge(ctx, func(int) bool { return true })
}

func (k *KWin) purge(ctx context.Context, match func(pid int) bool) ([]string, error) {
	if _, err := os.Stat(k.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	cfg, err := k.load()
	if err != nil {
		return nil, err
	}

	var ids []string
	candidates := append(cfg.SectionStrings(), ruleList(cfg)...)
	for _, id := range candidates {
		pid, ok := OwnerPID(id)
		if !ok || slices.Contains(ids, id) || !match(pid) {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	removeRules(cfg, ids)
	if err := k.save(cfg); err != nil {
		return nil, err
	}
	k.logger.Info("Purged window rules", "rules", ids)
	if err := k.Reload(ctx); err != nil {
		k.logger.Debug("Reload after purge failed", "error", err)
	}
	return ids, nil
}
