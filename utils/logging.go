package utils

import (
	"io"
	"os"
	"time"

	"spatools/api/models"

	"github.com/rs/zerolog"
)

// NewLogger builds the service logger. Format "console" gives human
// readable output, anything else JSON.
func NewLogger(cfg *models.Config) zerolog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *models.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	if cfg.Log.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "spatools").
		Logger()
}
