package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no file
// input. Useful for tests and for running without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention WARDEN_SECTION_FIELD (e.g., WARDEN_LEDGER_BACKEND) and always
// take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format WARDEN_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Policy overrides
	if val := os.Getenv("WARDEN_POLICY_BACKEND"); val != "" {
		cfg.Policy.Backend = val
	}
	if val := os.Getenv("WARDEN_POLICY_SQLITE_PATH"); val != "" {
		cfg.Policy.SQLitePath = val
	}
	if val := os.Getenv("WARDEN_POLICY_DIR"); val != "" {
		cfg.Policy.Dir = val
	}
	if val := os.Getenv("WARDEN_POLICY_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.Watch = b
		}
	}
	if val := os.Getenv("WARDEN_POLICY_WATCH_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Policy.WatchDebounce = d
		}
	}

	// Engine overrides
	if val := os.Getenv("WARDEN_ENGINE_MAX_PARALLEL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.MaxParallel = i
		}
	}

	// Enforcement overrides
	if val := os.Getenv("WARDEN_ENFORCEMENT_HOOK_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Enforcement.HookTimeout = d
		}
	}

	// Ledger overrides
	if val := os.Getenv("WARDEN_LEDGER_BACKEND"); val != "" {
		cfg.Ledger.Backend = val
	}
	if val := os.Getenv("WARDEN_LEDGER_SQLITE_PATH"); val != "" {
		cfg.Ledger.SQLite.Path = val
	}
	if val := os.Getenv("WARDEN_LEDGER_SQLITE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ledger.SQLite.BusyTimeout = d
		}
	}
	if val := os.Getenv("WARDEN_LEDGER_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Ledger.Retention.Days = i
		}
	}
	if val := os.Getenv("WARDEN_LEDGER_RETENTION_MAX_VERDICTS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Ledger.Retention.MaxVerdicts = i
		}
	}
	if val := os.Getenv("WARDEN_LEDGER_RETENTION_PRUNE_SCHEDULE"); val != "" {
		cfg.Ledger.Retention.PruneSchedule = val
	}

	// Acknowledgment overrides
	if val := os.Getenv("WARDEN_ACKS_BACKEND"); val != "" {
		cfg.Acks.Backend = val
	}
	if val := os.Getenv("WARDEN_ACKS_SQLITE_PATH"); val != "" {
		cfg.Acks.SQLitePath = val
	}

	// Telemetry overrides
	if val := os.Getenv("WARDEN_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("WARDEN_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("WARDEN_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("WARDEN_TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := os.Getenv("WARDEN_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
