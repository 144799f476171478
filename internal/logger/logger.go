package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	level         = new(slog.LevelVar)
	once          sync.Once
)

// Init sets up the process-wide logger: a JSON handler over os.Stdout
// at info level. The level can be raised or lowered afterward with
// SetLevel once config.Logging.Level is known, since Init runs before
// any config file or env var has been read.
func Init() {
	once.Do(func() {
		level.Set(slog.LevelInfo)
		defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(defaultLogger)
	})
}

// SetLevel adjusts the running logger's minimum level. Recognized
// values are "debug", "info", "warn"/"warning", and "error",
// case-insensitively; anything else leaves the current level
// untouched rather than silently dropping to a default.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}
}

// Get returns the initialized default logger, running Init first if
// this is the first call.
func Get() *slog.Logger {
	Init()
	return defaultLogger
}

// Info logs an informational message using the default logger.
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs an error message using the default logger, attaching err
// as an "error" attribute when non-nil.
func Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	Get().Error(msg, args...)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}
