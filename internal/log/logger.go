package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Logger wraps slog.Logger with a component name. The handler is a zap core.
type Logger struct {
	*slog.Logger
	component string
	sync      func() error
}

// Config holds logger configuration
type Config struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string
	// Format is "json" (production encoder) or "console" (development encoder).
	Format    string
	Component string
	// Core replaces the zap core built from Level and Format.
	Core zapcore.Core
}

// DefaultConfig returns sensible defaults for logging
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Component: ComponentApp,
	}
}

// New creates a new logger with the given configuration
func New(config Config) (*Logger, error) {
	core := config.Core
	syncFn := func() error { return nil }

	if core == nil {
		level, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(config.Level)))
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", config.Level, err)
		}

		var zcfg zap.Config
		switch config.Format {
		case "console":
			zcfg = zap.NewDevelopmentConfig()
		case "json", "":
			zcfg = zap.NewProductionConfig()
		default:
			return nil, fmt.Errorf("unknown log format %q", config.Format)
		}
		zcfg.Level = level
		zcfg.OutputPaths = []string{"stdout"}
		zcfg.EncoderConfig.TimeKey = "time"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		zl, err := zcfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build zap logger: %w", err)
		}
		core = zl.Core()
		syncFn = zl.Sync
	}

	component := config.Component
	if component == "" {
		component = ComponentApp
	}

	return &Logger{
		Logger:    slog.New(zapslog.NewHandler(core)),
		component: component,
		sync:      syncFn,
	}, nil
}

// With returns a new logger with the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
		sync:      l.sync,
	}
}

// WithComponent returns a new logger with a specific component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger,
		component: component,
		sync:      l.sync,
	}
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.Logger.InfoContext(ctx, msg, append([]any{FieldComponent, l.component}, args...)...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.Logger.WarnContext(ctx, msg, append([]any{FieldComponent, l.component}, args...)...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.Logger.ErrorContext(ctx, msg, append([]any{FieldComponent, l.component}, args...)...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.Logger.DebugContext(ctx, msg, append([]any{FieldComponent, l.component}, args...)...)
}

// Log logs at level with the component attached.
func (l *Logger) Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	l.Logger.Log(ctx, level, msg, append([]any{FieldComponent, l.component}, args...)...)
}

// Sync flushes buffered entries; call it before the process exits.
func (l *Logger) Sync() error {
	if l.sync == nil {
		return nil
	}
	return l.sync()
}

// SetDefault sets the default logger for the application
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}
