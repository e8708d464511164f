// Package logging provides structured logging for syncals using zerolog.
//
// Reconciliation runs are usually unattended, so the default logger writes
// JSON unless stderr is a terminal. Progress goes to stdout and problems to
// stderr when configured with Output "split", and a log file may be added
// alongside either.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("sink", "snapshot").Int("adds", 3).Msg("applied changes")
//
//	ctx := logging.WithRun(context.Background(), runID)
//	logging.FromContext(ctx).Warn().Err(err).Msg("booking skipped")
package logging

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Nop discards everything.
var Nop = zerolog.Nop()

var current atomic.Pointer[zerolog.Logger]

func init() {
	l := fromEnv()
	current.Store(&l)
}

// fromEnv builds the process logger before any config file is read.
// SYNCALS_LOG_LEVEL wins over LOG_LEVEL; DEBUG=1 lowers the level when
// neither is set.
func fromEnv() zerolog.Logger {
	level := envLevel()
	zerolog.SetGlobalLevel(level)

	var w io.Writer = os.Stderr
	if interactive(os.Stderr) && os.Getenv("LOG_FORMAT") != "json" {
		w = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.TimeOnly,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

func envLevel() zerolog.Level {
	for _, key := range []string{"SYNCALS_LOG_LEVEL", "LOG_LEVEL"} {
		if s := os.Getenv(key); s != "" {
			if level, err := zerolog.ParseLevel(s); err == nil {
				return level
			}
			return zerolog.InfoLevel
		}
	}
	if os.Getenv("DEBUG") != "" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func interactive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Default returns the process logger.
func Default() *zerolog.Logger {
	return current.Load()
}

// SetDefault replaces the process logger and the zerolog global one.
func SetDefault(logger zerolog.Logger) {
	current.Store(&logger)
	log.Logger = logger
}

// New creates a timestamped logger on w at the global level.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.GlobalLevel()).With().Timestamp().Logger()
}

// Debug logs on the process logger.
func Debug() *zerolog.Event { return Default().Debug() }

// Info logs on the process logger.
func Info() *zerolog.Event { return Default().Info() }

// Warn logs on the process logger.
func Warn() *zerolog.Event { return Default().Warn() }
