package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config describes logger runtime configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Caller bool   `mapstructure:"caller"`
}

// New constructs a zerolog logger from config. The level is also installed as
// the global level so it can be changed at runtime with SetLevel.
func New(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg Config, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	writer := out
	if strings.EqualFold(cfg.Format, "console") {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
	}

	builder := zerolog.New(writer).With().Timestamp()
	if cfg.Caller {
		builder = builder.Caller()
	}
	return builder.Logger()
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(normalize(name))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// SetLevel changes the global level. Unknown names are rejected.
func SetLevel(name string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(normalize(name))
	if err != nil {
		return zerolog.GlobalLevel(), err
	}
	if level == zerolog.NoLevel {
		return zerolog.GlobalLevel(), fmt.Errorf("empty log level")
	}
	zerolog.SetGlobalLevel(level)
	return level, nil
}

func Level() zerolog.Level {
	return zerolog.GlobalLevel()
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "warning":
		return "warn"
	case "critical":
		return "fatal"
	}
	return name
}
