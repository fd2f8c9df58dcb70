// Package logger builds the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

type Options struct {
	AddSource bool
	Level     string
	Format    string    // json (default) or text
	Output    io.Writer // defaults to os.Stdout
}

// New creates a logger and installs it as slog's default.
// An unknown level or format falls back to info/json and is reported in the returned error.
func New(opt *Options) (*slog.Logger, error) {
	if opt == nil {
		return nil, fmt.Errorf("logger options are required")
	}

	opts := &slog.HandlerOptions{
		AddSource: opt.AddSource,
	}

	level, err := ParseLevel(opt.Level)
	opts.Level = level

	out := opt.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler

	switch strings.ToLower(opt.Format) {
	case FormatText:
		handler = slog.NewTextHandler(out, opts)
	case FormatJSON, "":
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
		err = fmt.Errorf("unknown log format: %q", opt.Format)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log, err
}

// ParseLevel converts a string level to slog.Level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", level)
	}
}
