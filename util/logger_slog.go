package util

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps l. A nil logger falls back to slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

// NewJSONLogger creates a Logger writing JSON lines to w at the given level.
// Accepted levels (case-insensitive): "debug", "info", "warn", "error".
func NewJSONLogger(w io.Writer, level string) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})))
}

// ParseLevel converts a level string to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func (s *SlogLogger) log(level slog.Level, format string, a ...any) {
	if !s.logger.Enabled(context.Background(), level) {
		return
	}
	s.logger.Log(context.Background(), level, strings.TrimSuffix(fmt.Sprintf(format, a...), "\n"))
}

func (s *SlogLogger) Printf(format string, a ...any) {
	s.log(slog.LevelInfo, format, a...)
}

func (s *SlogLogger) Infof(format string, a ...any) {
	s.log(slog.LevelInfo, format, a...)
}

func (s *SlogLogger) Debugf(format string, a ...any) {
	s.log(slog.LevelDebug, format, a...)
}

func (s *SlogLogger) Warnf(format string, a ...any) {
	s.log(slog.LevelWarn, format, a...)
}

func (s *SlogLogger) Errorf(format string, a ...any) error {
	err := fmt.Errorf(format, a...)
	s.log(slog.LevelError, "%s", err.Error())
	return err
}
