package config

import "time"

// Default values for configuration fields.
const (
	// Policy defaults
	DefaultPolicyBackend    = "sqlite"
	DefaultPolicySQLitePath = "data/policies.db"
	DefaultWatchDebounce    = 500 * time.Millisecond

	// Engine defaults
	DefaultEngineMaxParallel = 8

	// Enforcement defaults
	DefaultHookTimeout = 5 * time.Second

	// Ledger defaults
	DefaultLedgerBackend      = "sqlite"
	DefaultLedgerSQLitePath   = "data/ledger.db"
	DefaultLedgerMaxOpenConns = 10
	DefaultLedgerMaxIdleConns = 5
	DefaultLedgerWALMode      = true
	DefaultLedgerBusyTimeout  = 5 * time.Second

	// Acknowledgment defaults
	DefaultAckBackend    = "sqlite"
	DefaultAckSQLitePath = "data/acks.db"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsEnabled       = true
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Policy defaults
	if cfg.Policy.Backend == "" {
		cfg.Policy.Backend = DefaultPolicyBackend
	}
	if cfg.Policy.SQLitePath == "" {
		cfg.Policy.SQLitePath = DefaultPolicySQLitePath
	}
	if cfg.Policy.WatchDebounce == 0 {
		cfg.Policy.WatchDebounce = DefaultWatchDebounce
	}

	// Engine defaults
	if cfg.Engine.MaxParallel == 0 {
		cfg.Engine.MaxParallel = DefaultEngineMaxParallel
	}

	// Enforcement defaults
	if cfg.Enforcement.HookTimeout == 0 {
		cfg.Enforcement.HookTimeout = DefaultHookTimeout
	}

	// Ledger defaults
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.SQLite.Path == "" {
		cfg.Ledger.SQLite.Path = DefaultLedgerSQLitePath
	}
	if cfg.Ledger.SQLite.MaxOpenConns == 0 {
		cfg.Ledger.SQLite.MaxOpenConns = DefaultLedgerMaxOpenConns
	}
	if cfg.Ledger.SQLite.MaxIdleConns == 0 {
		cfg.Ledger.SQLite.MaxIdleConns = DefaultLedgerMaxIdleConns
	}
	if !cfg.Ledger.SQLite.WALMode {
		cfg.Ledger.SQLite.WALMode = DefaultLedgerWALMode
	}
	if cfg.Ledger.SQLite.BusyTimeout == 0 {
		cfg.Ledger.SQLite.BusyTimeout = DefaultLedgerBusyTimeout
	}
	// Retention stays zero unless configured; pruning is opt-in.

	// Acknowledgment defaults
	if cfg.Acks.Backend == "" {
		cfg.Acks.Backend = DefaultAckBackend
	}
	if cfg.Acks.SQLitePath == "" {
		cfg.Acks.SQLitePath = DefaultAckSQLitePath
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if !cfg.Telemetry.Metrics.Enabled {
		cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
