package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/syncals/syncals/pkg/constants"
)

// Config holds logger configuration options
type Config struct {
	// Level is the minimum log level to output
	Level string

	// Format is the output format (json, console, auto)
	Format string

	// Output is where to write logs: stderr, stdout, split, discard.
	// "split" sends info and below to stdout, warnings and above to stderr.
	Output string

	// File, when set, additionally appends JSON logs to this path
	File string

	// TimeFormat for timestamps (kitchen, rfc3339, unix, etc.)
	TimeFormat string

	// NoColor disables color output in console mode
	NoColor bool

	// AddCaller includes file:line in log output
	AddCaller bool

	// Fields are default fields to include in all logs
	Fields map[string]any
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "auto",
		Output:     "stderr",
		TimeFormat: "kitchen",
		NoColor:    os.Getenv("NO_COLOR") != "",
		Fields:     make(map[string]any),
	}
}

// NewLoggerFromConfig creates a new logger from configuration.
// A log file that cannot be opened is reported on the returned logger
// and otherwise ignored.
func NewLoggerFromConfig(cfg *Config) zerolog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	writer, fileErr := getWriter(cfg)

	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	if cfg.AddCaller || level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}

	if len(cfg.Fields) > 0 {
		logger = logger.With().Fields(cfg.Fields).Logger()
	}

	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("file", cfg.File).Msg("log file unavailable")
	}

	return logger
}

// Configure builds a logger from cfg and makes it the process default, so
// code logging without a context logger follows the same settings.
func Configure(cfg *Config) zerolog.Logger {
	logger := NewLoggerFromConfig(cfg)
	SetDefault(logger)
	return logger
}

// getWriter assembles the writer chain described by cfg.
func getWriter(cfg *Config) (io.Writer, error) {
	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if interactive(os.Stderr) && strings.ToLower(cfg.Output) != "discard" {
			format = "console"
		}
	}

	wrap := func(w io.Writer) io.Writer {
		if format == "console" || format == "pretty" {
			return zerolog.ConsoleWriter{
				Out:        w,
				TimeFormat: parseTimeFormat(cfg.TimeFormat),
				NoColor:    cfg.NoColor,
			}
		}
		return w
	}

	var primary io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		primary = wrap(os.Stdout)
	case "split":
		primary = &SplitWriter{
			Low:       wrap(os.Stdout),
			High:      wrap(os.Stderr),
			Threshold: zerolog.WarnLevel,
		}
	case "discard", "none":
		primary = io.Discard
	default:
		primary = wrap(os.Stderr)
	}

	if cfg.File == "" {
		return primary, nil
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return primary, err
	}
	return zerolog.MultiLevelWriter(primary, file), nil
}

// SplitWriter routes events below Threshold to Low and the rest to High.
type SplitWriter struct {
	Low       io.Writer
	High      io.Writer
	Threshold zerolog.Level
}

// Write implements io.Writer. Events without a level go to Low.
func (w *SplitWriter) Write(p []byte) (int, error) {
	return w.Low.Write(p)
}

// WriteLevel implements zerolog.LevelWriter.
func (w *SplitWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= w.Threshold && level != zerolog.NoLevel {
		return w.High.Write(p)
	}
	return w.Low.Write(p)
}

// parseLevel parses a log level string
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	}
	if l, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
		return l
	}
	return zerolog.InfoLevel
}

// parseTimeFormat parses time format configuration
func parseTimeFormat(format string) string {
	switch strings.ToLower(format) {
	case "kitchen":
		return time.Kitchen
	case "rfc3339":
		return time.RFC3339
	case "unix", "epoch":
		return ""
	case "stamp":
		return time.Stamp
	case "datetime":
		return time.DateTime
	default:
		if strings.Contains(format, "2006") || strings.Contains(format, "15:04") {
			return format
		}
		return time.Kitchen
	}
}
