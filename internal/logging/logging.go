// Package logging builds the zerolog loggers shared by every component.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a leveled logger. Development gets a human readable console
// writer, every other environment gets JSON lines.
func New(level, environment string) zerolog.Logger {
	return NewWithWriter(level, environment, os.Stderr)
}

func NewWithWriter(level, environment string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	out := w
	if environment == "development" || environment == "" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "senso-geo").Logger()
}

// Component derives a child logger tagged with the component name
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// MaskAPIKey keeps only enough of a secret to tell keys apart in logs
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
