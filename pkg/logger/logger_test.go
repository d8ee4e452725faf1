package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithTableID(ctx, "tbl-9")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"table_id\":\"tbl-9\"")) {
		t.Fatalf("expected table_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled")
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	quiet.Warn(context.Background(), "warny")
	if bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("did not expect stack when warn stack disabled")
	}
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("info"), Output: buf})
	log.Debug(context.Background(), "noise")
	if buf.Len() != 0 {
		t.Fatalf("expected debug entry to be dropped, got %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" WARN "); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}

func TestLoggerStampsEnvAndSortsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Env: "prod", Level: ParseLevel("info"), Format: FormatJSON, Output: buf})

	ctx := log.WithFields(context.Background(), map[string]any{"zeta": 1, "alpha": 2})
	log.Info(ctx, "ordered")

	entry := buf.String()
	if !strings.Contains(entry, `"env":"prod"`) {
		t.Fatalf("expected env field; entry=%s", entry)
	}
	if strings.Index(entry, `"alpha"`) > strings.Index(entry, `"zeta"`) {
		t.Fatalf("expected fields in key order; entry=%s", entry)
	}
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: ParseLevel("info"), Format: "Console", Output: buf})
	log.Info(context.Background(), "hello")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected console output, got %s", buf.String())
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	ctx := log.WithRequisitionID(context.Background(), "req-1")
	log.Error(ctx, "ignored", errors.New("boom"))
}

func TestScopedFieldsLayer(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	ctx := log.WithUserID(context.Background(), "u-1")
	ctx = log.WithActorRole(ctx, "operator")
	log.Info(ctx, "layered")

	entry := buf.String()
	for _, want := range []string{`"user_id":"u-1"`, `"actor_role":"operator"`, `"service":"api"`} {
		if !strings.Contains(entry, want) {
			t.Fatalf("missing %s; entry=%s", want, entry)
		}
	}
	buf.Reset()
	log.Info(context.Background(), "bare")
	if strings.Contains(buf.String(), "user_id") {
		t.Fatalf("scoped field leaked into bare context: %s", buf.String())
	}
}
