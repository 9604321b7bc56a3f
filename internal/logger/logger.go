// Package logger builds the slog loggers used by serialmux.
//
// Two formats are supported: "console", a colored human readable format for
// interactive use, and "json" for running under a service manager.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phsym/console-slog"
)

// Options configures a logger
type Options struct {
	Level     string // debug, info, warn or error
	Format    string // console or json
	AddSource bool
	Output    io.Writer
}

// New creates a logger from opts. An empty Output writes to stderr.
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "console":
		handler = console.NewHandler(out, &console.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     level,
		})
	case "json":
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Key = "ts"
				}
				return a
			},
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return slog.New(handler), nil
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a level name to its slog level. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
