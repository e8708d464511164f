package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/viper"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	// Check OS env directly first
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	// If Viper doesn't have it but OS does, return OS value
	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// Secret names a value kept out of the config file, such as a private
// calendar feed URL.
type Secret struct {
	// Env is the environment variable or Viper key holding the value.
	Env string `mapstructure:"env" yaml:"env"`

	// Pattern optionally constrains the value.
	Pattern string `mapstructure:"pattern" yaml:"pattern,omitempty"`
}

// GetSecret resolves a secret through Viper and the environment. A missing
// value is an error only when required.
func GetSecret(s Secret, required bool) (string, error) {
	if s.Env == "" {
		return "", nil
	}

	value := GetString(s.Env)
	if value == "" {
		if required {
			return "", fmt.Errorf("environment variable %s not set", s.Env)
		}
		return "", nil
	}

	if s.Pattern != "" && s.Pattern != ".*" {
		matched, err := regexp.MatchString(s.Pattern, value)
		if err != nil {
			return "", fmt.Errorf("invalid pattern %s: %w", s.Pattern, err)
		}
		if !matched {
			return "", fmt.Errorf("value of %s does not match the required pattern", s.Env)
		}
	}

	return value, nil
}
