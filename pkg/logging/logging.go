// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soypete/calchat/pkg/config"
)

// Init points the global logger at stderr using the configured level and format.
// Format "auto" picks the console writer when stderr is a terminal and JSON otherwise.
func Init(cfg config.LoggingConfig) {
	log.Logger = New(os.Stderr, cfg)
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
}

// New builds a logger writing to w
func New(w io.Writer, cfg config.LoggingConfig) zerolog.Logger {
	var out io.Writer = w
	switch cfg.Format {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "json":
	default:
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
