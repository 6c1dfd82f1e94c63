package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_DefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf})

	logger.Debug("debug suppressed")
	if got := buf.Len(); got != 0 {
		t.Fatalf("expected debug output to be suppressed, got %d bytes", got)
	}

	logger.Info("visible message")
	if out := buf.String(); !strings.Contains(out, "visible message") {
		t.Fatalf("expected info log to contain message, got %q", out)
	}
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Verbose: true, Writer: &buf})

	logger.Debug("debug visible")
	if out := buf.String(); !strings.Contains(out, "debug visible") {
		t.Fatalf("expected debug output when verbose, got %q", out)
	}
}

func TestNew_JSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{JSON: true, Writer: &buf})

	logger.Info("structured", "statement", "getUser")

	out := buf.String()
	if !strings.Contains(out, `"msg":"structured"`) {
		t.Fatalf("expected JSON record, got %q", out)
	}
	if !strings.Contains(out, `"statement":"getUser"`) {
		t.Fatalf("expected statement attribute, got %q", out)
	}
}

func TestFromSlog(t *testing.T) {
	t.Run("debug log", func(t *testing.T) {
		var buf bytes.Buffer
		logger := FromSlog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

		logger.Debug("debug message", "key", "value")

		output := buf.String()
		if !strings.Contains(output, "debug message") {
			t.Errorf("output = %q, want to contain 'debug message'", output)
		}
		if !strings.Contains(output, "key=value") {
			t.Errorf("output = %q, want to contain 'key=value'", output)
		}
	})

	t.Run("info log", func(t *testing.T) {
		var buf bytes.Buffer
		logger := FromSlog(slog.New(slog.NewTextHandler(&buf, nil)))

		logger.Info("info message", "count", 42)

		output := buf.String()
		if !strings.Contains(output, "info message") {
			t.Errorf("output = %q, want to contain 'info message'", output)
		}
	})

	t.Run("warn and error log", func(t *testing.T) {
		var buf bytes.Buffer
		logger := FromSlog(slog.New(slog.NewTextHandler(&buf, nil)))

		logger.Warn("warn message")
		logger.Error("error message", "err", "something failed")

		output := buf.String()
		if !strings.Contains(output, "warn message") {
			t.Errorf("output = %q, want to contain 'warn message'", output)
		}
		if !strings.Contains(output, "error message") {
			t.Errorf("output = %q, want to contain 'error message'", output)
		}
	})

	t.Run("with attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := FromSlog(slog.New(slog.NewTextHandler(&buf, nil)))

		child := logger.With("cache", "userCache")
		child.Info("message")

		output := buf.String()
		if !strings.Contains(output, "cache=userCache") {
			t.Errorf("output = %q, want to contain 'cache=userCache'", output)
		}
	})

	t.Run("nil slog falls back to default", func(t *testing.T) {
		logger := FromSlog(nil)
		if logger == nil {
			t.Fatal("FromSlog(nil) = nil, want default logger")
		}
	})
}

func TestNop(t *testing.T) {
	logger := Nop()

	// These should not panic or produce output.
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	child := logger.With("key", "value")
	child.Info("child message")
}
