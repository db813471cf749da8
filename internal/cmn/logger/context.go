package logger

import (
	"context"
	"log/slog"
)

// WithLogger returns a new context with the given logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithValues adds key-value pairs to the logger carried by ctx.
func WithValues(ctx context.Context, keyvals ...any) context.Context {
	if len(keyvals)%2 != 0 {
		// slog.Attr values count as a single element, so only pad plain pairs.
		plain := 0
		for _, kv := range keyvals {
			if _, ok := kv.(slog.Attr); !ok {
				plain++
			}
		}
		if plain%2 != 0 {
			keyvals = append(keyvals, "MISSING_VALUE")
		}
	}
	return context.WithValue(ctx, loggerKey{}, FromContext(ctx).With(keyvals...))
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) Logger {
	if value, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return value
	}
	return defaultLogger
}

// Debug logs a message with debug level.
func Debug(ctx context.Context, msg string, tags ...any) {
	logAt(ctx, slog.LevelDebug, msg, tags...)
}

// Info logs a message with info level.
func Info(ctx context.Context, msg string, tags ...any) {
	logAt(ctx, slog.LevelInfo, msg, tags...)
}

// Warn logs a message with warn level.
func Warn(ctx context.Context, msg string, tags ...any) {
	logAt(ctx, slog.LevelWarn, msg, tags...)
}

// Error logs a message with error level.
func Error(ctx context.Context, msg string, tags ...any) {
	logAt(ctx, slog.LevelError, msg, tags...)
}

func logAt(ctx context.Context, level slog.Level, msg string, tags ...any) {
	l := FromContext(ctx)
	if a, ok := l.(*appLogger); ok {
		a.logFromHelper(level, msg, tags...)
		return
	}
	switch level {
	case slog.LevelDebug:
		l.Debug(msg, tags...)
	case slog.LevelWarn:
		l.Warn(msg, tags...)
	case slog.LevelError:
		l.Error(msg, tags...)
	default:
		l.Info(msg, tags...)
	}
}

type loggerKey struct{}
