package aiutil

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerFromContextPrefersContext(t *testing.T) {
	var ctxBuf, fallbackBuf bytes.Buffer
	ctx := zerolog.New(&ctxBuf).WithContext(context.Background())

	log := LoggerFromContext(ctx, zerolog.New(&fallbackBuf), "charstore")
	log.Info().Msg("hello")

	if fallbackBuf.Len() != 0 {
		t.Fatalf("fallback logger should be unused, got %q", fallbackBuf.String())
	}
	if !strings.Contains(ctxBuf.String(), `"component":"charstore"`) {
		t.Fatalf("expected component field, got %q", ctxBuf.String())
	}
}

func TestLoggerFromContextFallback(t *testing.T) {
	var buf bytes.Buffer
	log := LoggerFromContext(context.Background(), zerolog.New(&buf), "")
	log.Info().Msg("hello")
	if !strings.Contains(buf.String(), "hello") || strings.Contains(buf.String(), "component") {
		t.Fatalf("unexpected fallback output %q", buf.String())
	}
}
