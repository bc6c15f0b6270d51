package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithLevel(buf, "debug", false)
	ctx := NewContext(context.Background(), l)
	FromContext(ctx).Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestJSONHandlerFiltersLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewWithLevel(buf, "warn", true)
	l.Info("skipped")
	l.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "skipped") || !strings.Contains(out, `"msg":"kept"`) {
		t.Fatalf("unexpected output: %q", out)
	}
}
