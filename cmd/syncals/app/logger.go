package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/syncals/syncals/pkg/logging"
)

// NewLogger builds the CLI logger and installs it as the process default.
// The level is, in order of precedence:
// --log-level, -v (debug), -q (warn), log_level from the config file or
// environment, then info. Conflicting or invalid settings are reported on
// the new logger.
func NewLogger(config *Config) zerolog.Logger {
	level, problem := determineLogLevel(config)

	logger := logging.Configure(&logging.Config{
		Level:     level,
		Format:    config.LogFormat,
		Output:    config.LogOutput,
		File:      config.LogFile,
		NoColor:   config.NoColor || os.Getenv("NO_COLOR") != "",
		AddCaller: level == "trace",
	})
	if problem != "" {
		logger.Warn().Str("level", level).Msg(problem)
	}
	return logger
}

// determineLogLevel returns the level to log at and, when the settings
// were contradictory or invalid, what was wrong with them.
func determineLogLevel(config *Config) (level, problem string) {
	switch {
	case config.explicitLevel:
		return checkedLevel(config.LogLevel)
	case config.Verbose && config.Quiet:
		return "warn", "both --verbose and --quiet given, using --quiet"
	case config.Verbose:
		return "debug", ""
	case config.Quiet:
		return "warn", ""
	case config.LogLevel != "":
		return checkedLevel(config.LogLevel)
	}
	return "info", ""
}

func checkedLevel(level string) (string, string) {
	if v := validateLogLevel(level); v != level {
		return v, fmt.Sprintf("invalid log level %q", level)
	}
	return level, ""
}

// validateLogLevel returns level when it is one the CLI accepts, else info.
func validateLogLevel(level string) string {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return level
	}
	return "info"
}
