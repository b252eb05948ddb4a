package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/probelab/redscan/internal/types"
)

// Loader handles loading configuration from files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperLoader implements Loader using Viper.
type viperLoader struct {
	validator Validator
}

// NewLoader creates a new Loader instance.
func NewLoader(validator Validator) Loader {
	return &viperLoader{
		validator: validator,
	}
}

// Load loads configuration from the specified file path.
// Returns an error if the file doesn't exist or cannot be parsed.
// Environment variables referenced as ${VAR_NAME} in string values are
// interpolated after parsing.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal config", err)
	}

	interpolateConfig(cfg)

	if err := l.validator.Validate(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "configuration validation failed", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration from the specified file path.
// If the file doesn't exist, returns the default configuration.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "default configuration validation failed", err)
		}
		return cfg, nil
	}

	return l.Load(path)
}

// interpolateConfig applies ${ENV_VAR} interpolation to the string fields
// that commonly carry environment references.
func interpolateConfig(cfg *Config) {
	cfg.Core.HomeDir = interpolateString(cfg.Core.HomeDir)
	cfg.Core.DataDir = interpolateString(cfg.Core.DataDir)
	cfg.Database.Path = interpolateString(cfg.Database.Path)
	cfg.Provider.APIKey = interpolateString(cfg.Provider.APIKey)
	cfg.Provider.BaseURL = interpolateString(cfg.Provider.BaseURL)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unset variables leave the reference untouched.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}
