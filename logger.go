package probego

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with probego-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRunID adds a run_id field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithSample adds a sample_id field to the logger.
func (l *Logger) WithSample(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("sample_id", id),
	}
}

// LogSelect logs a contact selection.
func (l *Logger) LogSelect(ctx context.Context, contact string, err error) {
	if err != nil {
		l.WarnContext(ctx, "contact selection failed",
			"contact", contact,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "contact selected",
			"contact", contact,
		)
	}
}

// LogContact logs the outcome of one contact's measurement.
func (l *Logger) LogContact(ctx context.Context, contact string, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "contact measurement failed",
			"contact", contact,
			"records", records,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "contact measured",
			"contact", contact,
			"records", records,
		)
	}
}

// LogRunEnd logs the end of a run.
func (l *Logger) LogRunEnd(ctx context.Context, state RunState, measured, failed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "run ended",
			"state", state.String(),
			"measured", measured,
			"failed", failed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "run ended",
			"state", state.String(),
			"measured", measured,
			"failed", failed,
		)
	}
}

// LogPreview logs a preview pass.
func (l *Logger) LogPreview(ctx context.Context, contact string, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "preview failed",
			"contact", contact,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "preview completed",
			"contact", contact,
			"records", records,
		)
	}
}
