package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNopLoggerDisabled(t *testing.T) {
	l := Nop()
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("Nop().Enabled(%v) = true, want false", level)
		}
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l := slog.Default()
	if OrNop(l) != l {
		t.Error("OrNop should return the given logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRecorderCapturesAttrs(t *testing.T) {
	rec := NewRecorder()
	l := rec.Logger().With("component", "test")
	l.Info(EventPathMatched, "strategy", "exact", "key", "/images/a.jpg")
	l.Debug(EventPathUnmatched)

	got := rec.Events(EventPathMatched)
	if len(got) != 1 {
		t.Fatalf("Events(%q) = %d records, want 1", EventPathMatched, len(got))
	}
	v, ok := Attr(got[0], "strategy")
	if !ok || v.String() != "exact" {
		t.Errorf("strategy attr = %v (found %v), want exact", v, ok)
	}
	if v, ok := Attr(got[0], "component"); !ok || v.String() != "test" {
		t.Errorf("component attr = %v (found %v), want test", v, ok)
	}
	if n := len(rec.Events(EventPathUnmatched)); n != 1 {
		t.Errorf("unmatched events = %d, want 1", n)
	}

	rec.Reset()
	if n := len(rec.Events(EventPathMatched)); n != 0 {
		t.Errorf("after Reset got %d events", n)
	}
}
