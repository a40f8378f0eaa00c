// Package logging builds the logrus logger shared by the CLI and the engine.
// Logs always go to stderr so stdout carries only the report.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelTrace Level = "trace"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Config struct {
	Level   Level
	Format  string
	Output  io.Writer
	NoColor bool
}

func DefaultConfig() Config {
	return Config{
		Level:  LevelWarn,
		Format: "text",
		Output: os.Stderr,
	}
}

// LevelForVerbosity maps the count of -v flags to a level.
func LevelForVerbosity(n int) Level {
	switch {
	case n >= 2:
		return LevelTrace
	case n == 1:
		return LevelDebug
	default:
		return LevelWarn
	}
}

func New(config Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(string(config.Level)))
	if err != nil {
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)

	if config.Output != nil {
		logger.SetOutput(config.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}

	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors:    config.NoColor,
			DisableTimestamp: true,
		})
	}

	return logger
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
