package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rentwise/rentd/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	if l := New(cfg); l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestActorIDContext(t *testing.T) {
	ctx := context.Background()

	if got := ActorID(ctx); got != "" {
		t.Errorf("expected empty actor ID, got %q", got)
	}

	ctx = WithActorID(ctx, "user-7")
	if got := ActorID(ctx); got != "user-7" {
		t.Errorf("expected user-7, got %q", got)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithActorID(WithRequestID(context.Background(), "req-9"), "user-7")
	FromContext(ctx, log).Info("hello")

	out := buf.String()
	if !strings.Contains(out, "request_id=req-9") || !strings.Contains(out, "actor_id=user-7") {
		t.Errorf("missing context attributes in %q", out)
	}
}
