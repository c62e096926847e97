package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"metals-dashboard/internal/version"
)

// Config describes logger runtime configuration.
type Config struct {
	Level string `mapstructure:"level"`
	// Format is json or console.
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
	Caller     bool   `mapstructure:"caller"`
	// Output is stderr or stdout. CLI tables go to stdout, so logs default to stderr.
	Output string `mapstructure:"output"`
}

// NewLogger builds the process logger from config.
func NewLogger(cfg Config) zerolog.Logger {
	return NewLoggerTo(outputFor(cfg.Output), cfg)
}

// NewLoggerTo is NewLogger with an explicit sink.
func NewLoggerTo(out io.Writer, cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	ctx := zerolog.New(formatWriter(out, cfg.Format)).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "metalsdash").
		Str("version", version.Version)
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Component derives a child logger tagged with the subsystem name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// 无法识别的级别一律退回 info。
func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func formatWriter(out io.Writer, format string) io.Writer {
	if strings.EqualFold(format, "console") || strings.EqualFold(format, "pretty") {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return out
}

func outputFor(name string) io.Writer {
	if strings.EqualFold(name, "stdout") {
		return os.Stdout
	}
	return os.Stderr
}
