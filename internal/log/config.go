package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Config represents logging configuration.
type Config struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
	// Echo duplicates log lines to stderr when it is a terminal.
	Echo bool `json:"echo" yaml:"echo"`
}

// DefaultConfig returns default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level: "info",
		File:  "./output.log",
		Echo:  true,
	}
}

// ParseLevel parses string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Configure opens the configured log file and returns a line logger on it
// together with the closer for the file.
func Configure(cfg Config) (Logger, io.Closer, error) {
	level := ParseLevel(cfg.Level)

	f, err := OpenAppend(cfg.File)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = f
	if cfg.Echo && IsTerminal(os.Stderr) {
		w = io.MultiWriter(f, os.Stderr)
	}

	return NewLineLogger(w, level), f, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// OpenAppend opens path for appending, creating it if needed.
func OpenAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}
