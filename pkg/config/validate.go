package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "ledger.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateEnforcement(&cfg.Enforcement)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validateAcks(&cfg.Acks)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validBackend(name string) bool {
	return name == "memory" || name == "sqlite"
}

func validatePolicy(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	if !validBackend(cfg.Backend) {
		errs = append(errs, FieldError{
			Field:   "policy.backend",
			Message: fmt.Sprintf("unknown backend %q, must be \"memory\" or \"sqlite\"", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "policy.sqlite_path",
			Message: "path is required for the sqlite backend",
		})
	}
	if cfg.Watch && cfg.Dir == "" {
		errs = append(errs, FieldError{
			Field:   "policy.watch",
			Message: "watch requires policy.dir",
		})
	}
	if cfg.WatchDebounce < 0 {
		errs = append(errs, FieldError{
			Field:   "policy.watch_debounce",
			Message: "debounce must be non-negative",
		})
	}

	return errs
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxParallel < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.max_parallel",
			Message: "must be at least 1",
		})
	}

	return errs
}

func validateEnforcement(cfg *EnforcementConfig) []FieldError {
	var errs []FieldError

	if cfg.HookTimeout < 100*time.Millisecond {
		errs = append(errs, FieldError{
			Field:   "enforcement.hook_timeout",
			Message: "must be at least 100ms",
		})
	}

	return errs
}

func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	if !validBackend(cfg.Backend) {
		errs = append(errs, FieldError{
			Field:   "ledger.backend",
			Message: fmt.Sprintf("unknown backend %q, must be \"memory\" or \"sqlite\"", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{
			Field:   "ledger.sqlite.path",
			Message: "path is required for the sqlite backend",
		})
	}
	if cfg.SQLite.MaxOpenConns < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.sqlite.max_open_conns",
			Message: "must be non-negative",
		})
	}
	if cfg.SQLite.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.sqlite.busy_timeout",
			Message: "must be non-negative",
		})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.retention.days",
			Message: "must be non-negative",
		})
	}
	if cfg.Retention.MaxVerdicts < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.retention.max_verdicts",
			Message: "must be non-negative",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "ledger.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateAcks(cfg *AckConfig) []FieldError {
	var errs []FieldError

	if !validBackend(cfg.Backend) {
		errs = append(errs, FieldError{
			Field:   "acks.backend",
			Message: fmt.Sprintf("unknown backend %q, must be \"memory\" or \"sqlite\"", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "acks.sqlite_path",
			Message: "path is required for the sqlite backend",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q", cfg.Logging.Format),
		})
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.listen_address",
			Message: "listen address is required when metrics are enabled",
		})
	}
	if cfg.Metrics.Path != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "path must start with /",
		})
	}

	return errs
}
