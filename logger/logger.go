package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func NewLogger() *slog.Logger {
	return NewLoggerWithLevel(os.Stdout, "info")
}

// NewLoggerWithLevel builds a JSON logger writing to w. Unknown levels fall back to info.
func NewLoggerWithLevel(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
