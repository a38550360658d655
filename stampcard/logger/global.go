package logger

import (
	"log/slog"
	"time"
)

// LogRequest logs an API request outcome, leveled by status class.
func LogRequest(method, path, ip string, status int, duration time.Duration) {
	attrs := []any{
		slog.String("type", "api"),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("ip", ip),
	}

	switch {
	case status >= 500:
		slog.Error("Request failed", attrs...)
	case status >= 400:
		slog.Warn("Request rejected", attrs...)
	default:
		slog.Info("Request handled", attrs...)
	}
}

// LogQuery logs database operations
func LogQuery(operation, query string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.String("operation", operation),
		slog.String("query", query),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Debug("Query executed", attrs...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
