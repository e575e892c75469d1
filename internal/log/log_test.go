package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn", "day", 3)
	Error("shown error", errors.New("boom"), "id", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("unexpected low-level lines in %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn day=3") {
		t.Fatalf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown error err=boom id=abc") {
		t.Fatalf("missing error line in %q", out)
	}
}

func TestOddKeyValuesIgnoreTrailingKey(t *testing.T) {
	buf := capture(t, LevelDebug)

	Debug("odd", "a", 1, "dangling")

	line := strings.TrimSpace(buf.String())
	if !strings.HasSuffix(line, "[DEBUG] odd a=1") {
		t.Fatalf("unexpected line %q", line)
	}
}
