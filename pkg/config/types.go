// Package config provides configuration loading and validation for authburst.
package config

import (
	"time"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	LogSources []string `yaml:"log_sources"`

	// Year is combined with the year-less syslog timestamps.
	Year int `yaml:"year,omitempty"`

	// Timezone is the IANA zone the log timestamps were written in.
	Timezone string `yaml:"timezone,omitempty"`

	Detection DetectionConfig `yaml:"detection"`
	Report    ReportConfig    `yaml:"report,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Storage   StorageConfig   `yaml:"storage,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	Webhooks  []WebhookConfig `yaml:"webhooks,omitempty"`

	// location is the loaded Timezone (populated during validation).
	location *time.Location
}

// Location returns the loaded timezone, or UTC before validation.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// DetectionConfig controls incident clustering.
type DetectionConfig struct {
	// Window bounds how far a cluster may extend past its first attempt.
	Window time.Duration `yaml:"window"`

	// Threshold is the minimum number of failed attempts in an incident.
	Threshold int `yaml:"threshold"`

	// Workers is the number of identities clustered concurrently.
	// Zero means one per CPU.
	Workers int `yaml:"workers,omitempty"`
}

// ReportConfig controls summary output.
type ReportConfig struct {
	// TopN is the number of identities listed in the attacker ranking.
	TopN int `yaml:"top_n,omitempty"`
}

// LoggingConfig controls diagnostic logging (not the report itself).
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`

	// File, when set, sends JSON logs to a rotated file instead of stderr.
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// StorageDriver names a supported database backend.
type StorageDriver string

const (
	StorageDriverSQLite   StorageDriver = "sqlite"
	StorageDriverPostgres StorageDriver = "postgres"
)

// StorageConfig controls persistence of analysis runs.
type StorageConfig struct {
	Enabled bool          `yaml:"enabled"`
	Driver  StorageDriver `yaml:"driver,omitempty"`
	DSN     string        `yaml:"dsn,omitempty"`
}

// MetricsConfig controls run metrics export.
type MetricsConfig struct {
	// Textfile is a path for the Prometheus node_exporter textfile collector.
	Textfile string `yaml:"textfile,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIncidents fires only when incidents are detected (default).
	WebhookTriggerOnIncidents WebhookTrigger = "on_incidents"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending analysis results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_incidents" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
