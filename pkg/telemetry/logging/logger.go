package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat names a log output encoding.
type LogFormat string

const (
	// FormatJSON emits one JSON object per record.
	FormatJSON LogFormat = "json"
	// FormatText emits logfmt-style key=value lines.
	FormatText LogFormat = "text"
)

// Config controls how New builds the logger.
type Config struct {
	// Level is the minimum level: debug, info, warn or error. Empty
	// selects info.
	Level string

	// Format selects json or text output. Empty selects json.
	Format string

	// AddSource includes the file and line of the logging call.
	AddSource bool

	// Writer receives the log output. Nil selects os.Stderr.
	Writer io.Writer
}

// New creates a structured logger with the given configuration.
//
// The returned slog.LevelVar controls the minimum level and can be
// adjusted at runtime, which is how configuration reloads change log
// verbosity without rebuilding the logger. Records flow through the
// redacting handler (masks sensitive attribute values) and the context
// handler (appends request-scoped fields carried in the context).
func New(cfg Config) (*slog.Logger, *slog.LevelVar, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	opts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	handler = NewRedactingHandler(handler)
	handler = NewContextHandler(handler)

	return slog.New(handler), levelVar, nil
}

// ParseLevel parses a log level name, case-insensitively, into a
// slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
}

func parseFormat(name string) (LogFormat, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", name)
	}
}
