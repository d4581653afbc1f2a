// Package slogutil builds modgraph's loggers: a one-line console format on
// stderr and an optional debug log under .modgraph/logs.
package slogutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Silent is above every standard level; a handler at Silent writes nothing.
const Silent = slog.Level(100)

// NewDiscardLogger returns a logger that writes nothing. Packages fall back
// to it when the caller passes no logger.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewLineHandler(io.Discard, &slog.HandlerOptions{Level: Silent}))
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
	"off":     Silent,
}

// ParseLevel maps a logging.level or MODGRAPH_LOG_LEVEL value to a level.
func ParseLevel(s string) (slog.Level, bool) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	return l, ok
}

// verbosityLevel maps the number of -v flags: none is warn, one is info,
// more is debug.
func verbosityLevel(n int) slog.Level {
	switch {
	case n >= 2:
		return slog.LevelDebug
	case n == 1:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

// fanout passes each record to every handler that accepts its level. The CLI
// uses it to log to stderr and the log file at different levels.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
