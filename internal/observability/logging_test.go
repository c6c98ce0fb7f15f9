package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func newCaptureLogger(level, format string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: level, Format: format, Output: &buf})
	return logger, &buf
}

func TestLoggerRespectsLevel(t *testing.T) {
	logger, buf := newCaptureLogger("warn", "text")
	ctx := context.Background()

	logger.Info(ctx, "should be dropped")
	logger.Warn(ctx, "should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("info record emitted at warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn record missing")
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	logger, buf := newCaptureLogger("info", "json")
	logger.Info(context.Background(), "hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"key":"value"`) {
		t.Errorf("json output = %q", out)
	}
}

func TestLoggerIncludesRequestID(t *testing.T) {
	logger, buf := newCaptureLogger("info", "json")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
	logger.Info(ctx, "tagged")

	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Errorf("output = %q, want request_id attribute", buf.String())
	}
}

func TestLoggerRedactsSecrets(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		args   []any
		secret string
	}{
		{
			name:   "api key in message",
			msg:    "auth failed for sk-abcdefghijklmnopqrstuvwx",
			secret: "sk-abcdefghijklmnopqrstuvwx",
		},
		{
			name:   "aws secret in error arg",
			msg:    "request failed",
			args:   []any{"error", errors.New("secret_access_key=wJalrXUtnFEMIK7MDENGbPxRfiCYEXAMPLEKEY")},
			secret: "wJalrXUtnFEMIK7MDENGbPxRfiCYEXAMPLEKEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newCaptureLogger("info", "text")
			logger.Info(context.Background(), tt.msg, tt.args...)

			out := buf.String()
			if strings.Contains(out, tt.secret) {
				t.Errorf("output leaks secret: %q", out)
			}
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("output has no redaction marker: %q", out)
			}
		})
	}
}

func TestWithPreservesAttributes(t *testing.T) {
	logger, buf := newCaptureLogger("info", "json")

	logger.With("component", "store").Info(context.Background(), "ready")

	if !strings.Contains(buf.String(), `"component":"store"`) {
		t.Errorf("output = %q, want bound attribute", buf.String())
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	// Must not panic and must not write anywhere observable.
	NewNop().Info(context.Background(), "ignored", "k", "v")
}
