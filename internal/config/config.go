package config

import (
	"time"
)

// Config is the root configuration for redscan.
type Config struct {
	Core       CoreConfig       `mapstructure:"core" yaml:"core" validate:"required"`
	Database   DBConfig         `mapstructure:"database" yaml:"database" validate:"required"`
	Provider   ProviderConfig   `mapstructure:"provider" yaml:"provider"`
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	Queue      QueueConfig      `mapstructure:"queue" yaml:"queue"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	HomeDir string        `mapstructure:"home_dir" yaml:"home_dir"`
	DataDir string        `mapstructure:"data_dir" yaml:"data_dir"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=1s"`
	Debug   bool          `mapstructure:"debug" yaml:"debug"`
}

// DBConfig contains SQLite database configuration.
type DBConfig struct {
	Path           string        `mapstructure:"path" yaml:"path"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections" validate:"min=1,max=100"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=1s"`
}

// ProviderConfig contains text-generation provider settings.
// APIKey supports ${ENV_VAR} interpolation so keys stay out of config files.
type ProviderConfig struct {
	Name    string `mapstructure:"name" yaml:"name" validate:"omitempty,oneof=openai anthropic ollama mock"`
	Model   string `mapstructure:"model" yaml:"model"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// GenerationConfig contains test-case generation settings.
type GenerationConfig struct {
	// Delay is the courtesy pause inserted after each provider call.
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`

	// MaxConsecutiveRetries bounds rounds that add no new unique prompts.
	MaxConsecutiveRetries int `mapstructure:"max_consecutive_retries" yaml:"max_consecutive_retries" validate:"min=0,max=20"`
}

// QueueConfig contains scan job queue settings.
type QueueConfig struct {
	// RefundWindow is the early-failure window within which a failed
	// (non-cancelled) job refunds its scan credit.
	RefundWindow time.Duration `mapstructure:"refund_window" yaml:"refund_window" validate:"min=1s"`

	// Retention is how long terminal jobs are kept before the sweeper
	// deletes them.
	Retention time.Duration `mapstructure:"retention" yaml:"retention" validate:"min=1m"`

	// SweepInterval is how often the sweeper runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval" validate:"min=1m"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}
