package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Setup replaces the process logger according to LOG_LEVEL and LOG_FORMAT.
func Setup(level, format string) *slog.Logger {
	logger = New(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// WithUserID stores the user id of the dialogue being processed in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// FromContext returns the process logger, tagged with user_id if ctx carries one.
func FromContext(ctx context.Context) *slog.Logger {
	userID, _ := ctx.Value(ctxKeyUserID).(string)
	if userID == "" {
		return logger
	}
	return logger.With("user_id", userID)
}

func parseLevel(level string) slog.Level {
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
