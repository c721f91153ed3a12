package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default values for configuration.
const (
	DefaultWindow         = 10 * time.Minute
	DefaultThreshold      = 5
	DefaultTopN           = 10
	DefaultTimezone       = "UTC"
	DefaultLogLevel       = "info"
	DefaultLogMaxSizeMB   = 100
	DefaultLogMaxBackups  = 3
	DefaultLogMaxAgeDays  = 28
	DefaultWebhookTimeout = 10 * time.Second
	DefaultSQLiteDSN      = "file:authburst.db?_pragma=busy_timeout(5000)"
	DefaultPostgresDSN    = "postgres://localhost:5432/authburst?sslmode=disable"
)

// Accepted range for the year of log timestamps. Parsed timestamps are never
// the zero time.Time.
const (
	MinYear = 1970
	MaxYear = 9999
)

// Environment variable names.
const (
	EnvYear       = "AUTHBURST_YEAR"
	EnvLogLevel   = "AUTHBURST_LOG_LEVEL"
	EnvStorageDSN = "AUTHBURST_STORAGE_DSN"
)

// DefaultConfig returns a configuration with sensible defaults.
// The year defaults to the current one.
func DefaultConfig() *Config {
	return &Config{
		LogSources: []string{},
		Year:       time.Now().Year(),
		Timezone:   DefaultTimezone,
		Detection: DetectionConfig{
			Window:    DefaultWindow,
			Threshold: DefaultThreshold,
		},
		Report: ReportConfig{
			TopN: DefaultTopN,
		},
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
		Storage: StorageConfig{
			Driver: StorageDriverSQLite,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() error {
	if v := os.Getenv(EnvYear); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvYear, err)
		}
		c.Year = year
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}

	if dsn := os.Getenv(EnvStorageDSN); dsn != "" {
		c.Storage.DSN = dsn
	}

	return nil
}
