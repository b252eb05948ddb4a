package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := DefaultHomeDir()

	return &Config{
		Core: CoreConfig{
			HomeDir: homeDir,
			DataDir: filepath.Join(homeDir, "data"),
			Timeout: 5 * time.Minute,
			Debug:   false,
		},
		Database: DBConfig{
			Path:           filepath.Join(homeDir, "redscan.db"),
			MaxConnections: 10,
			Timeout:        30 * time.Second,
		},
		Provider: ProviderConfig{
			Name:  "openai",
			Model: "gpt-4o-mini",
		},
		Generation: GenerationConfig{
			Delay:                 0,
			MaxConsecutiveRetries: 5,
		},
		Queue: QueueConfig{
			RefundWindow:  30 * time.Second,
			Retention:     time.Hour,
			SweepInterval: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultHomeDir returns the default redscan home directory, ~/.redscan,
// falling back to a temporary directory if user home cannot be determined.
func DefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".redscan")
	}
	return filepath.Join(userHome, ".redscan")
}

// DefaultConfigPath returns the default config file path under homeDir.
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}
