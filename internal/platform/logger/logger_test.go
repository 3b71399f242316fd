package logger

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
)

// Init is once-only for the whole process, so every test shares one sink
var (
	sink     bytes.Buffer
	sinkOnce sync.Once
)

func testInit(t *testing.T) {
	t.Helper()
	sinkOnce.Do(func() {
		Init(Options{Level: "debug", Format: "json", Service: "doorman", Writer: &sink})
	})
	sink.Reset()
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "trace",
		"WARN":    "warn",
		"warning": "warn",
		"bogus":   "debug",
		"":        "debug",
	}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInitWritesJSON(t *testing.T) {
	testInit(t)

	Get().Info().Msg("hello from test")
	out := sink.String()
	if !strings.Contains(out, `"service":"doorman"`) {
		t.Fatalf("expected service field, got: %s", out)
	}
	if !strings.Contains(out, "hello from test") {
		t.Fatalf("expected message, got: %s", out)
	}
}

func TestContextScopedFields(t *testing.T) {
	testInit(t)

	ctx := WithModeration(context.Background(), 42, 7)
	ctx = WithUpdate(ctx, 1001)
	C(ctx).Info().Msg("scoped")

	out := sink.String()
	for _, want := range []string{`"chat_id":42`, `"user_id":7`, `"update_id":1001`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output: %s", want, out)
		}
	}
}

func TestZeroIDsSkipped(t *testing.T) {
	testInit(t)

	C(WithModeration(context.Background(), 0, 0)).Info().Msg("bare")
	out := sink.String()
	if strings.Contains(out, "chat_id") || strings.Contains(out, "user_id") {
		t.Fatalf("zero ids must not be logged: %s", out)
	}
}

func TestNamedComponent(t *testing.T) {
	testInit(t)

	Named("pipeline").Info().Msg("component scoped")
	if !strings.Contains(sink.String(), `"component":"pipeline"`) {
		t.Fatalf("expected component field: %s", sink.String())
	}
}
