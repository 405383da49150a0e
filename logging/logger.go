// Package logging provides a minimal structured logging interface over slog
// so packages can depend on a tiny surface while callers plug in any
// structured logger. All components accept a Logger via options and default
// to NoOpLogger, keeping tests silent.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the minimal logging interface the engine depends on. Arguments
// follow slog conventions: alternating key/value pairs after the message.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement Logger.
type SlogAdapter struct {
	*slog.Logger
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }
func (s *SlogAdapter) Info(msg string, args ...any)  { s.Logger.Info(msg, args...) }
func (s *SlogAdapter) Warn(msg string, args ...any)  { s.Logger.Warn(msg, args...) }
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from an existing *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// Options configure New.
type Options struct {
	Level     slog.Level
	Format    string // "json" (default) or "text"
	Output    io.Writer
	AddSource bool
}

// New builds a structured Logger writing to stdout unless overridden.
func New(optFns ...func(o *Options)) Logger {
	opts := Options{Level: slog.LevelInfo, Format: "json", Output: os.Stdout}
	for _, fn := range optFns {
		fn(&opts)
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}
	var handler slog.Handler
	if opts.Format == "text" {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	}
	return NewSlogAdapter(slog.New(handler))
}

// With returns a Logger carrying additional persistent attributes when the
// underlying implementation supports it, otherwise the logger unchanged.
func With(logger Logger, args ...any) Logger {
	if sa, ok := logger.(*SlogAdapter); ok {
		return NewSlogAdapter(sa.Logger.With(args...))
	}
	return logger
}

// NoOpLogger discards all messages.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}
