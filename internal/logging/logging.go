// Package logging builds the zerolog logger used for diagnostics.
// Command output is written separately and never goes through the logger.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"shotty/internal/errors"
)

// New returns a console logger writing to w at the given level.
// verbose forces debug level regardless of level.
func New(w io.Writer, level string, verbose bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), errors.ValidationErrorf("invalid log level %q", level).
			WithSuggestion("Use one of: debug, info, warn, error")
	}
	if level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
