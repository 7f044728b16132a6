// Package logger provides structured logging backed by zerolog.
// It configures a process-wide logger with service-level context and
// provides trace ID propagation through context.Context.
package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

var base zerolog.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures and returns the process logger for the given service.
// Output is JSON to stdout; set format to "console" for a human-readable
// writer during local runs. Unknown levels fall back to info.
func Init(service, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out = os.Stdout
	w := zerolog.New(out)
	if format == "console" {
		w = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly})
	}

	base = w.Level(lvl).With().
		Timestamp().
		Str("service", service).
		Logger()

	return base
}

// With returns a child logger tagged with a component name.
// Usage: log := logger.With("api")
func With(component string) zerolog.Logger {
	return base.With().Str("comp", component).Logger()
}

// WithTraceID stores a trace ID in the context for downstream propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from context. Returns "" if not set.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateTraceID creates a trace ID from a symbol and timestamp,
// formatted "{symbol}-{unixNano}".
func GenerateTraceID(symbol string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", symbol, ts.UnixNano())
}
