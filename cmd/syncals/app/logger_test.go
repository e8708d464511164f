package app

import (
	"testing"
)

// TestDetermineLogLevel tests the log level precedence logic.
func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{
			name:     "default level when no flags set",
			config:   &Config{},
			expected: "info",
		},
		{
			name:     "verbose flag sets debug",
			config:   &Config{Verbose: true},
			expected: "debug",
		},
		{
			name:     "quiet flag sets warn",
			config:   &Config{Quiet: true},
			expected: "warn",
		},
		{
			name:     "explicit log-level overrides verbose",
			config:   &Config{LogLevel: "error", Verbose: true, explicitLevel: true},
			expected: "error",
		},
		{
			name:     "explicit log-level overrides quiet",
			config:   &Config{LogLevel: "trace", Quiet: true, explicitLevel: true},
			expected: "trace",
		},
		{
			name:     "both verbose and quiet prefers quiet",
			config:   &Config{Verbose: true, Quiet: true},
			expected: "warn",
		},
		{
			name:     "verbose beats level from config file",
			config:   &Config{LogLevel: "error", Verbose: true},
			expected: "debug",
		},
		{
			name:     "level from config file",
			config:   &Config{LogLevel: "debug"},
			expected: "debug",
		},
		{
			name:     "invalid level falls back to info",
			config:   &Config{LogLevel: "loud"},
			expected: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := determineLogLevel(tt.config); got != tt.expected {
				t.Errorf("determineLogLevel() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestUpdateFromFlags verifies flags mark the level as explicit.
func TestUpdateFromFlags(t *testing.T) {
	c := &Config{LogLevel: "warn", Format: "yaml"}
	c.UpdateFromFlags(true, false, true, "", "")
	if got, _ := determineLogLevel(c); got != "debug" {
		t.Errorf("verbose should override config level, got %q", got)
	}
	if c.Format != "yaml" {
		t.Errorf("empty format flag changed Format to %q", c.Format)
	}

	c.UpdateFromFlags(true, false, true, "json", "error")
	if got, _ := determineLogLevel(c); got != "error" {
		t.Errorf("--log-level should win, got %q", got)
	}
	if c.Format != "json" || !c.NoColor {
		t.Errorf("flags not applied: %+v", c)
	}
}

// TestDetermineLogLevelProblems tests that bad settings are explained.
func TestDetermineLogLevelProblems(t *testing.T) {
	if _, problem := determineLogLevel(&Config{Verbose: true, Quiet: true}); problem == "" {
		t.Error("conflicting flags not reported")
	}
	if _, problem := determineLogLevel(&Config{LogLevel: "loud"}); problem == "" {
		t.Error("invalid level not reported")
	}
	if _, problem := determineLogLevel(&Config{LogLevel: "warn"}); problem != "" {
		t.Errorf("unexpected problem %q", problem)
	}
}

// TestValidateLogLevel tests log level validation.
func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		if got := validateLogLevel(level); got != level {
			t.Errorf("validateLogLevel(%q) = %q", level, got)
		}
	}
	for _, level := range []string{"", "INFO", "fatal", "verbose"} {
		if got := validateLogLevel(level); got != "info" {
			t.Errorf("validateLogLevel(%q) = %q, want info", level, got)
		}
	}
}

// TestNewLogger verifies the logger is created at the computed level.
func TestNewLogger(t *testing.T) {
	logger := NewLogger(&Config{Quiet: true, LogFormat: "json", LogOutput: "stderr"})
	if logger.GetLevel().String() != "warn" {
		t.Errorf("level = %s, want warn", logger.GetLevel())
	}
}
