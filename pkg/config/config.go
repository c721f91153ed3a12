package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation error. Invalid
// configuration is fatal: it is rejected before any log line is read.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors, fills in defaults for optional
// fields and loads the timezone. Errors wrap ErrInvalidConfig.
func Validate(cfg *Config) error {
	if len(cfg.LogSources) == 0 {
		return invalid("log_sources", "at least one log source is required")
	}

	if cfg.Year < MinYear || cfg.Year > MaxYear {
		return invalid("year", fmt.Sprintf("must be between %d and %d, got %d", MinYear, MaxYear, cfg.Year))
	}

	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return invalid("timezone", err.Error())
	}
	cfg.location = loc

	if err := ValidateDetection(&cfg.Detection); err != nil {
		return err
	}

	if cfg.Report.TopN <= 0 {
		cfg.Report.TopN = DefaultTopN
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := validateStorage(&cfg.Storage); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

// ValidateDetection checks the clustering parameters. It is exported so that
// command-line overrides can be re-checked after flags are applied.
func ValidateDetection(d *DetectionConfig) error {
	if d.Window <= 0 {
		return invalid("detection.window", fmt.Sprintf("must be > 0, got %s", d.Window))
	}
	if d.Threshold <= 0 {
		return invalid("detection.threshold", fmt.Sprintf("must be > 0, got %d", d.Threshold))
	}
	if d.Workers < 0 {
		return invalid("detection.workers", fmt.Sprintf("must be >= 0, got %d", d.Workers))
	}
	return nil
}

func validateLogging(l *LoggingConfig) error {
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if _, err := zapcore.ParseLevel(l.Level); err != nil {
		return invalid("level", err.Error())
	}
	if l.MaxSizeMB <= 0 {
		l.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if l.MaxBackups < 0 {
		return invalid("max_backups", "must be >= 0")
	}
	if l.MaxAgeDays < 0 {
		return invalid("max_age_days", "must be >= 0")
	}
	return nil
}

func validateStorage(s *StorageConfig) error {
	if !s.Enabled {
		return nil
	}

	switch StorageDriver(strings.ToLower(string(s.Driver))) {
	case "", StorageDriverSQLite:
		s.Driver = StorageDriverSQLite
		if strings.TrimSpace(s.DSN) == "" {
			s.DSN = DefaultSQLiteDSN
		}
	case StorageDriverPostgres, "postgresql":
		s.Driver = StorageDriverPostgres
		if strings.TrimSpace(s.DSN) == "" {
			s.DSN = DefaultPostgresDSN
		}
	default:
		return invalid("driver", fmt.Sprintf("unsupported driver %q (must be sqlite or postgres)", s.Driver))
	}

	s.DSN = expandEnvVar(s.DSN)

	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return invalid("url", "is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return invalid("url", err.Error())
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("url", fmt.Sprintf("scheme must be http or https, got %q", u.Scheme))
	}

	if u.Host == "" {
		return invalid("url", "must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnIncidents, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return invalid("trigger", fmt.Sprintf("invalid trigger %q (must be on_incidents, always, or never)", wh.Trigger))
		}
	} else {
		wh.Trigger = WebhookTriggerOnIncidents
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

func invalid(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
