package app

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/syncals/syncals/pkg/constants"
	pkgerrors "github.com/syncals/syncals/pkg/errors"
)

// EnvPrefix prefixes every environment variable Viper binds.
const EnvPrefix = "SYNCALS"

// Config holds the CLI configuration loaded from various sources
// including config files, environment variables, and .env files.
// The reconciliation settings of the config file are decoded on demand
// by App.Settings.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
	LogFile   string

	// explicitLevel is set when --log-level was given
	explicitLevel bool
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (SYNCALS_*)
// 3. .env files
// 4. Config file (./syncals.yaml or ~/syncals.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	// Set up Viper for environment variables
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Search for config in standard locations
	viper.SetConfigType("yaml")
	viper.SetConfigName(constants.DefaultConfigName)
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}

	// A missing config file is fine; a broken one is not
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, pkgerrors.WrapParse("yaml", viper.ConfigFileUsed(), err)
		}
	}

	return &Config{
		Format:     viper.GetString("format"),
		ConfigFile: viper.ConfigFileUsed(),

		LogLevel:  getEnvOrDefault("log_level", "LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("log_format", "LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("log_output", "LOG_OUTPUT", "stderr"),
		LogFile:   getEnvOrDefault("log_file", "LOG_FILE", ""),
	}, nil
}

// ReadConfigFile switches Viper to an explicit config file.
func (c *Config) ReadConfigFile(path string) error {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return pkgerrors.WrapParse("yaml", path, err)
	}
	c.ConfigFile = viper.ConfigFileUsed()
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
		c.explicitLevel = true
	}
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// godotenv never overrides, so .env.local is loaded first to win over .env
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the Viper value of key (config file or SYNCALS_
// variable), then the plain environment variable, then the default.
func getEnvOrDefault(key, env, defaultValue string) string {
	if value := viper.GetString(key); value != "" {
		return value
	}
	if value := os.Getenv(env); value != "" {
		return value
	}
	return defaultValue
}
