// Package log is the structured logging layer shared by the dashboard
// binaries. Every Logger is bound to a component name that appears as the
// "component" attribute on each record it writes.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger bound to one component.
type Logger struct {
	*slog.Logger
	// base carries the accumulated attributes without the component, so the
	// component can be swapped instead of repeated.
	base      *slog.Logger
	component string
}

// Config describes how New builds a Logger. A nil Handler means a text
// handler on stdout at Level.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level})
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	return bind(slog.New(handler), component)
}

// NewText builds a text logger writing to w at level.
func NewText(w io.Writer, level slog.Level, component string) *Logger {
	return New(Config{
		Level:     level,
		Component: component,
		Handler:   slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	})
}

func bind(base *slog.Logger, component string) *Logger {
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// With returns a logger carrying args on every record, same component.
func (l *Logger) With(args ...any) *Logger {
	return bind(l.base.With(args...), l.component)
}

// WithComponent returns a logger with the same attributes under another
// component name.
func (l *Logger) WithComponent(component string) *Logger {
	return bind(l.base, component)
}

func (l *Logger) Component() string {
	return l.component
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetDefault makes logger the process default. Packages that log through
// slog directly then carry its handler, without its component.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.base)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored by NewContext, or one built on the
// default handler under the app component.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return bind(slog.Default(), ComponentApp)
}
