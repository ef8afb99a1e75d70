package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.Info().Str("component", "ledger").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"ledger"`) {
		t.Errorf("missing field in output: %s", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("missing message in output: %s", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	ctx := WithContext(context.Background(), log)
	got := FromContext(ctx)

	got.Info().Msg("from context")
	if !strings.Contains(buf.String(), "from context") {
		t.Errorf("context logger did not write to the original writer: %q", buf.String())
	}
}

func TestFromContextMissUsesCachedDefault(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	first := FromContext(context.Background())
	if first.GetLevel() != zerolog.ErrorLevel {
		t.Fatalf("default level = %v, want error", first.GetLevel())
	}

	// A later env change must not produce a different logger: the default is
	// built once, not per miss.
	t.Setenv("LOG_LEVEL", "debug")
	second := FromContext(context.Background())
	if second.GetLevel() != first.GetLevel() {
		t.Errorf("default logger rebuilt per call: %v vs %v", second.GetLevel(), first.GetLevel())
	}
}
