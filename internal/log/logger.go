package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
)

// Logger is the interface for sqlbatch logging
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// logger wraps slog.Logger
type logger struct {
	slog *slog.Logger
	ctx  context.Context
}

// New creates a new logger with the given handler
func New(handler slog.Handler) Logger {
	return &logger{slog: slog.New(handler)}
}

// NewLineLogger creates a logger writing "<timestamp> - <LEVEL> - <message>"
// lines to w.
func NewLineLogger(w io.Writer, level slog.Level) Logger {
	return New(NewLineHandler(w, level))
}

// Discard returns a logger that drops every record.
func Discard() Logger {
	return NewLineLogger(io.Discard, slog.LevelError+1)
}

func (l *logger) context() context.Context {
	if l.ctx != nil {
		return l.ctx
	}
	return context.Background()
}

func (l *logger) Debug(msg string, args ...any) {
	l.slog.DebugContext(l.context(), msg, args...)
}

func (l *logger) Info(msg string, args ...any) {
	l.slog.InfoContext(l.context(), msg, args...)
}

func (l *logger) Warn(msg string, args ...any) {
	l.slog.WarnContext(l.context(), msg, args...)
}

func (l *logger) Error(msg string, args ...any) {
	l.slog.ErrorContext(l.context(), msg, args...)
}

func (l *logger) With(args ...any) Logger {
	return &logger{slog: l.slog.With(args...), ctx: l.ctx}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	return &logger{slog: l.slog, ctx: ctx}
}

// Helper functions for structured logging

// String returns a string attribute
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int returns an int attribute
func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

// Bool returns a bool attribute
func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

// Duration returns a duration attribute
func Duration(key string, value time.Duration) slog.Attr {
	return slog.Duration(key, value)
}

// Err returns an error attribute under the "error" key
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Latency logs at debug level how long operation took since start, with
// the caller's location.
func Latency(l Logger, start time.Time, operation string) {
	_, file, line, _ := runtime.Caller(1)
	l.Debug("operation completed",
		String("operation", operation),
		Duration("latency", time.Since(start)),
		String("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line)),
	)
}
