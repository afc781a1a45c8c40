package config

import "time"

// Config is the root configuration structure for Warden. It contains all
// configuration sections for policy storage, the evaluation engine,
// enforcement, the decision ledger, acknowledgments, and telemetry.
type Config struct {
	// Policy contains configuration for policy persistence and the
	// optional YAML file source.
	Policy PolicyConfig `yaml:"policy"`

	// Engine contains configuration for the evaluation engine.
	Engine EngineConfig `yaml:"engine"`

	// Enforcement contains configuration for mode dispatch and hooks.
	Enforcement EnforcementConfig `yaml:"enforcement"`

	// Ledger contains configuration for the decision ledger backend and
	// retention.
	Ledger LedgerConfig `yaml:"ledger"`

	// Acks contains configuration for the acknowledgment tracker.
	Acks AckConfig `yaml:"acks"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig contains configuration for policy storage and loading.
type PolicyConfig struct {
	// Backend selects the policy store backend: "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the policy database file path when Backend is "sqlite".
	// Default: "data/policies.db"
	SQLitePath string `yaml:"sqlite_path"`

	// Dir is a directory of policy YAML files loaded into the store at
	// startup. Empty disables the file source.
	Dir string `yaml:"dir"`

	// Watch enables hot reload of the policy directory via filesystem
	// notifications. Requires Dir.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period before a filesystem change
	// triggers a reload.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// EngineConfig contains configuration for the evaluation engine.
type EngineConfig struct {
	// MaxParallel bounds concurrent per-policy evaluations for one event.
	// Default: 8
	MaxParallel int `yaml:"max_parallel"`
}

// EnforcementConfig contains configuration for the enforcement dispatcher.
type EnforcementConfig struct {
	// HookTimeout bounds a single autonomous hook call. A hook that does
	// not answer in time is treated as escalated.
	// Default: 5s
	HookTimeout time.Duration `yaml:"hook_timeout"`
}

// LedgerConfig contains configuration for the decision ledger.
type LedgerConfig struct {
	// Backend selects the ledger backend: "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains pruning settings. Zero values disable pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains settings for the ledger SQLite database.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains ledger retention settings. Retention is an ops
// add-on and stays off unless configured.
type RetentionConfig struct {
	// Days is the number of days to retain settled ledger records.
	// Zero disables age-based pruning.
	Days int `yaml:"days"`

	// MaxVerdicts caps the verdict row count. Zero disables the cap.
	MaxVerdicts int64 `yaml:"max_verdicts"`

	// PruneSchedule is a cron expression (e.g. "0 3 * * *"). Empty
	// disables scheduled pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}

// AckConfig contains configuration for the acknowledgment tracker.
type AckConfig struct {
	// Backend selects the acknowledgment store backend: "memory" or
	// "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the acknowledgment database file path when Backend is
	// "sqlite".
	// Default: "data/acks.db"
	SQLitePath string `yaml:"sqlite_path"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled turns metric collection and the metrics endpoint on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP server.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
