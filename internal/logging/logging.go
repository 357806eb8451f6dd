package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var structuredLogger = slog.Default()

// Options configures Init.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, receives a copy of every log line and is rotated by size.
	File string
	// Output overrides stdout. Used by tests.
	Output io.Writer
}

// Init configures the process-wide structured (JSON) logger and installs it
// as the slog default. The returned function closes the log file, if any.
func Init(opts Options) (func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}

	closeFunc := func() error { return nil }
	if opts.File != "" {
		logDir := filepath.Dir(opts.File)
		if logDir != "." {
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
			}
		}
		fileWriter := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out = io.MultiWriter(out, fileWriter)
		closeFunc = fileWriter.Close
	}

	structuredLogger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(structuredLogger)
	return closeFunc, nil
}

// ParseLevel converts a textual level into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Structured returns the configured structured logger.
func Structured() *slog.Logger {
	return structuredLogger
}

// ForService creates a logger with the 'service' attribute added.
func ForService(serviceName string) *slog.Logger {
	return structuredLogger.With("service", serviceName)
}
