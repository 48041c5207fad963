package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ============================================================
// Event names
// ============================================================

const (
	EventPathNormalized = "path.normalized"
	EventPathMatched    = "path.matched"
	EventPathUnmatched  = "path.unmatched"

	EventGestureBegin  = "editor.gesture.begin"
	EventGestureCommit = "editor.gesture.commit"
	EventGestureCancel = "editor.gesture.cancel"
	EventZoneDiscarded = "editor.zone.discarded"
	EventZonesLoaded   = "editor.zones.loaded"
	EventSaved         = "editor.saved"
	EventSizeFallback  = "editor.size.fallback"

	EventSettingsChanged = "settings.changed"
	EventZonesDropped    = "zones.dropped"
)

// ============================================================
// Loggers
// ============================================================

// nopHandler drops every record. Enabled returns false so callers skip
// attribute construction entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Nop returns a logger that discards all output.
func Nop() *slog.Logger { return slog.New(nopHandler{}) }

// OrNop returns l, or a silent logger when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// New builds the process logger: text output for development, JSON otherwise.
func New(level, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if env == "" || env == "development" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ============================================================
// Recorder
// ============================================================

// Recorder is a slog.Handler that keeps every record in memory so tests can
// assert on emitted events and their attributes.
type Recorder struct {
	mu      *sync.Mutex
	records *[]slog.Record
	attrs   []slog.Attr
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, records: &[]slog.Record{}}
}

// Logger wraps the recorder in a *slog.Logger.
func (r *Recorder) Logger() *slog.Logger { return slog.New(r) }

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	rec = rec.Clone()
	rec.AddAttrs(r.attrs...)
	r.mu.Lock()
	*r.records = append(*r.records, rec)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, r.attrs...), attrs...)
	return &Recorder{mu: r.mu, records: r.records, attrs: merged}
}

func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Events returns the records whose message equals name.
func (r *Recorder) Events(name string) []slog.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []slog.Record
	for _, rec := range *r.records {
		if rec.Message == name {
			out = append(out, rec)
		}
	}
	return out
}

// Reset forgets all captured records.
func (r *Recorder) Reset() {
	r.mu.Lock()
	*r.records = (*r.records)[:0]
	r.mu.Unlock()
}

// Attr returns the value of the named attribute on rec.
func Attr(rec slog.Record, key string) (slog.Value, bool) {
	var (
		val   slog.Value
		found bool
	)
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			val, found = a.Value, true
			return false
		}
		return true
	})
	return val, found
}
