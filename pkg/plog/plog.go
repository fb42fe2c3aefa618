// Package plog provides the process-wide structured logger.
// It is a thin layer over log/slog: records at INFO and below go to stdout,
// WARN and above go to stderr, and the active level can be changed at runtime.
package plog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LevelNotice sits between Debug and Info. It is used for per-file progress
// lines (COPY, EXCL, DELETE) that are useful in verbose runs but too chatty
// for the default level.
const LevelNotice = slog.Level(-2)

// Exported levels for SetLevel.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// levelNames maps the custom level to its display name.
var levelNames = map[slog.Leveler]string{
	LevelNotice: "NOTICE",
}

// levelDispatchHandler is a slog.Handler that writes log records to different
// handlers based on the record's level. INFO and below go to one handler,
// while WARNING and above go to another.
type levelDispatchHandler struct {
	stdoutHandler slog.Handler
	stderrHandler slog.Handler
}

// Enabled checks if the level is enabled for either of the underlying handlers.
func (h *levelDispatchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.stdoutHandler.Enabled(ctx, level) || h.stderrHandler.Enabled(ctx, level)
}

// Handle dispatches the record to the appropriate handler.
func (h *levelDispatchHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.stderrHandler.Handle(ctx, r)
	}
	return h.stdoutHandler.Handle(ctx, r)
}

// WithAttrs returns a new levelDispatchHandler with the given attributes added.
func (h *levelDispatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelDispatchHandler{
		stdoutHandler: h.stdoutHandler.WithAttrs(attrs),
		stderrHandler: h.stderrHandler.WithAttrs(attrs),
	}
}

// WithGroup returns a new levelDispatchHandler with the given group.
func (h *levelDispatchHandler) WithGroup(name string) slog.Handler {
	return &levelDispatchHandler{
		stdoutHandler: h.stdoutHandler.WithGroup(name),
		stderrHandler: h.stderrHandler.WithGroup(name),
	}
}

var (
	mu            sync.RWMutex
	activeLevel   = new(slog.LevelVar)
	defaultLogger *slog.Logger
)

// handlerOptions builds the slog options shared by all handlers, renaming
// the custom NOTICE level so it doesn't print as "INFO-2".
func handlerOptions() *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: activeLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				if name, ok := levelNames[level]; ok {
					a.Value = slog.StringValue(name)
				}
			}
			return a
		},
	}
}

func init() {
	stdoutHandler := slog.NewTextHandler(os.Stdout, handlerOptions())
	stderrHandler := slog.NewTextHandler(os.Stderr, handlerOptions())
	defaultLogger = slog.New(&levelDispatchHandler{
		stdoutHandler: stdoutHandler,
		stderrHandler: stderrHandler,
	})
}

// SetOutput redirects all log output to a single writer, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = slog.New(slog.NewTextHandler(w, handlerOptions()))
}

// SetLevel changes the minimum level that will be logged.
func SetLevel(level slog.Level) {
	activeLevel.Set(level)
}

// LevelFromString maps a config/flag string to a level. Unknown strings
// fall back to Info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "notice":
		return LevelNotice
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	logger().Log(context.Background(), LevelDebug, msg, args...)
}

// Notice logs a per-item progress message.
func Notice(msg string, args ...any) {
	logger().Log(context.Background(), LevelNotice, msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}
