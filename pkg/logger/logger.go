// Package logger is the leveled progress log of kcc. User-facing
// diagnostics go through pkg/util instead.
package logger

import (
	"io"
	"log/slog"
	"os"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

type Config struct {
	Level     Level
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
	LogFile   string
}

var current = slog.New(slog.NewTextHandler(io.Discard, nil))

func DefaultConfig() Config {
	return Config{Level: LevelWarn, Format: "text", Output: os.Stderr}
}

// Init replaces the package logger. The returned closer releases LogFile
// when one was opened.
func Init(cfg Config) (io.Closer, error) {
	output := cfg.Output
	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		output, closer = f, f
	}
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.slog(), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}
	current = slog.New(handler)
	return closer, nil
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

func Debug(msg string, args ...any) { current.Debug(msg, args...) }
func Info(msg string, args ...any)  { current.Info(msg, args...) }
func Warn(msg string, args ...any)  { current.Warn(msg, args...) }

// Stage logs the completion of a pipeline stage with its result size.
func Stage(name string, args ...any) {
	current.Debug("stage complete", append([]any{"stage", name}, args...)...)
}
