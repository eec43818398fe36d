// Package logger is the storefront's structured logger: zerolog JSON lines
// stamped with service and instance, with per-request fields carried on the
// context.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mksagencies/storefront-backend/pkg/env"
	"github.com/mksagencies/storefront-backend/pkg/instance"
)

// Options configures New. Level defaults to info when left at
// zerolog.NoLevel; Instance defaults to instance.ID().
type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	Output      io.Writer
	Instance    string
}

type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	if opts.Instance == "" {
		opts.Instance = instance.ID()
	}

	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}
	// LOG_FORMAT=console is for local runs only; Cloud Logging parses JSON.
	if env.Get("LOG_FORMAT", "json") == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	return &Logger{
		base: zerolog.New(out).Level(opts.Level).With().
			Timestamp().
			Str("service", opts.ServiceName).
			Str("instance", opts.Instance).
			Logger(),
		warnStack: opts.WarnStack,
	}
}

// Nop discards everything.
func Nop() *Logger {
	return New(Options{ServiceName: "nop", Level: zerolog.Disabled, Output: io.Discard, Instance: "nop"})
}

// ParseLevel maps MKS_LOG_LEVEL to a zerolog level, falling back to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return entry
		}
	}
	return &l.base
}

func (l *Logger) with(ctx context.Context, build func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	entry := build(l.from(ctx).With()).Logger()
	return context.WithValue(ctx, ctxKey{}, &entry)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.WithField(ctx, "order_id", orderID)
}

func (l *Logger) WithClientIP(ctx context.Context, ip string) context.Context {
	return l.WithField(ctx, "client_ip", ip)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.from(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stack())
	}
	event.Msg(msg)
}

// Error always carries a stack.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.from(ctx).Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
