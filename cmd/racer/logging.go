// cmd/racer/logging.go
package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/config"
)

// newLogger writes to stderr so stdout stays free for a stdio link.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
