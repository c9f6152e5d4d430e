// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup routes the global logger to w in console format.
// Debug lowers the level from warn to debug.
func Setup(w io.Writer, debug bool) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    true,
	}).With().Timestamp().Logger()
}

// For returns a child of the global logger tagged with a module name.
func For(mod string) zerolog.Logger {
	return log.With().Str("mod", mod).Logger()
}
