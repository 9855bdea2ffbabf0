// Package logging builds the process logger and carries it through contexts.
//
// The MCP stdio transport owns stdout, so loggers always write to stderr or
// another writer supplied by the caller.
package logging

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// ParseLevel converts a config level name to a log level, defaulting to info.
func ParseLevel(name string) log.Level {
	lvl, err := log.ParseLevel(name)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger from ctx, or log.Default() if none is attached.
func FromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// Timer logs completion of an operation with its elapsed duration.
type Timer struct {
	logger *log.Logger
	start  time.Time
}

// StartTimer captures the current time as the start of an operation.
func StartTimer(l *log.Logger) *Timer {
	return &Timer{logger: l, start: time.Now()}
}

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Done logs msg at debug level along with the elapsed time.
func (t *Timer) Done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", t.Elapsed().Round(time.Millisecond))
	t.logger.Debug(msg, keyvals...)
}
