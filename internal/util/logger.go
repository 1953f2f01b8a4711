// Package util provides helper functions for logging events
package util

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	mu     sync.Mutex
)

// SetupLogger installs the process-wide structured logger and points the
// standard log package at it. Valid levels: "debug", "info", "warn", "error".
// JSON output is used when format is "json" or GO_ENV=production.
func SetupLogger(level, format string) {
	SetupLoggerTo(os.Stdout, level, format)
}

// SetupLoggerTo is SetupLogger writing to w.
func SetupLoggerTo(w io.Writer, level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if format == "json" || os.Getenv("GO_ENV") == "production" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	mu.Lock()
	logger = slog.New(h)
	mu.Unlock()
	slog.SetDefault(logger)
	log.SetFlags(0)
}

// L returns the global logger instance.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	return logger
}

// With returns a logger carrying the given attributes, e.g. util.With("component", "planner").
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { L().Debug(msg, args...) }

// Info prints general system information messages.
func Info(msg string, args ...any) { L().Info(msg, args...) }

// Warn logs recoverable problems such as dropped commands.
func Warn(msg string, args ...any) { L().Warn(msg, args...) }

// Error prints error messages.
func Error(msg string, args ...any) { L().Error(msg, args...) }
