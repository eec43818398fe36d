package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithOrderID(ctx, "order-9")

	log.Error(ctx, "boom", errors.New("boom"))

	for _, want := range []string{"\"request_id\"", "\"order_id\"", "\"stack\"", "\"service\":\"test\""} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %s in entry=%s", want, buf.String())
		}
	}
}

func TestLoggerStampsInstance(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf, Instance: "api-7"})
	log.Info(context.Background(), "hello")
	if !bytes.Contains(buf.Bytes(), []byte(`"instance":"api-7"`)) {
		t.Fatalf("expected instance field; entry=%s", buf.String())
	}

	buf.Reset()
	t.Setenv("MKS_INSTANCE_ID", "cron-1")
	log = New(Options{ServiceName: "cron-worker", Output: buf})
	log.Info(context.Background(), "hello")
	if !bytes.Contains(buf.Bytes(), []byte(`"instance":"cron-1"`)) {
		t.Fatalf("expected instance from env; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	log.Warn(context.Background(), "quiet")
	if bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("did not expect stack when warn stack disabled; entry=%s", buf.String())
	}

	buf.Reset()
	log = New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "loud")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled; entry=%s", buf.String())
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("warn"), Output: buf})
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" DEBUG "); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", lvl)
	}
}
