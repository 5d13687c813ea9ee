package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

const journalIdentifier = "capture-stream"

// journalSend is replaced in tests.
var journalSend = journal.Send

// JournalHandler is a slog.Handler that writes to the systemd journal.
//
// Every entry carries SYSLOG_IDENTIFIER=capture-stream so `journalctl -t
// capture-stream` shows the whole tool. The module attribute set by
// GetLogger becomes the MODULE field and prefixes MESSAGE, since the default
// journalctl output shows no other fields.
type JournalHandler struct {
	level  slog.Leveler
	module string
	fields map[string]string
	prefix string
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, fields: map[string]string{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the record to the journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]string, len(h.fields)+r.NumAttrs()+2)
	for k, v := range h.fields {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		addJournalField(fields, h.prefix, a)
		return true
	})
	fields["SYSLOG_IDENTIFIER"] = journalIdentifier

	msg := r.Message
	if h.module != "" {
		fields["MODULE"] = h.module
		msg = h.module + ": " + msg
	}
	return journalSend(msg, journalPriority(r.Level), fields)
}

// WithAttrs returns a handler that adds attrs to every entry.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		if a.Key == "module" && h.prefix == "" {
			next.module = a.Value.String()
			continue
		}
		addJournalField(next.fields, h.prefix, a)
	}
	return next
}

// WithGroup returns a handler that prefixes later keys with name.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.prefix = h.prefix + name + "_"
	return next
}

func (h *JournalHandler) clone() *JournalHandler {
	fields := make(map[string]string, len(h.fields))
	for k, v := range h.fields {
		fields[k] = v
	}
	return &JournalHandler{level: h.level, module: h.module, fields: fields, prefix: h.prefix}
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addJournalField flattens a into fields. Groups are joined with "_".
func addJournalField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	switch a.Value.Kind() {
	case slog.KindGroup:
		for _, member := range a.Value.Group() {
			addJournalField(fields, prefix+a.Key+"_", member)
		}
	case slog.KindTime:
		fields[journalFieldName(prefix+a.Key)] = a.Value.Time().Format(time.RFC3339Nano)
	default:
		fields[journalFieldName(prefix+a.Key)] = a.Value.String()
	}
}

// journalFieldName maps a slog key onto the journal's field alphabet:
// uppercase letters, digits and underscores, not starting with an
// underscore (those are trusted fields set by journald).
func journalFieldName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
	name = strings.TrimLeft(name, "_")
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		name = "F_" + name
	}
	return name
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
