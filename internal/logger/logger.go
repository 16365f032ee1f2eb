// Package logger builds the zerolog loggers used by the binaries.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a human readable console logger in DEV and a JSON logger elsewhere.
// verbose lowers the level to debug.
func New(env string, w io.Writer, verbose bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if env == "DEV" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetGlobal installs l as the package level logger used by log.Err and friends.
func SetGlobal(l zerolog.Logger) {
	log.Logger = l
}
