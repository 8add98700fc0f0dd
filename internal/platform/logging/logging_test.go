package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewBuildsLoggerForKnownFormats(t *testing.T) {
	for _, format := range []string{"", "json", "console", " JSON "} {
		logger, err := New("test", Config{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("New(format=%q) error = %v", format, err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Fatalf("format %q: expected debug level enabled", format)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New("test", Config{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("test", Config{Level: "loud"}); err == nil {
		t.Fatal("expected level parse error")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	level, err := parseLevel("  ")
	if err != nil {
		t.Fatalf("parseLevel() error = %v", err)
	}
	if level != zapcore.InfoLevel {
		t.Fatalf("level = %s, want info", level)
	}
}

func TestOrNopReturnsUsableLogger(t *testing.T) {
	OrNop(nil).Info("discarded")
}
