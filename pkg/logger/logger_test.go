package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithUserID(ctx, "user-456")
	logg.Info(ctx, "hello")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-123"`, `"user_id":"user-456"`, `"service":"test"`, `"message":"hello"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s: %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %s", got)
	}
	if got := ParseLevel(""); got != zerolog.InfoLevel {
		t.Fatalf("empty level should default to info, got %s", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("unknown level should default to info, got %s", got)
	}
}
