package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
policy:
  backend: memory
  dir: ./policies
  watch: true
engine:
  max_parallel: 4
ledger:
  sqlite:
    path: /tmp/test-ledger.db
  retention:
    days: 30
    prune_schedule: "0 3 * * *"
telemetry:
  logging:
    level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() = %v", err)
	}

	if cfg.Policy.Backend != "memory" || !cfg.Policy.Watch {
		t.Errorf("policy = %+v", cfg.Policy)
	}
	if cfg.Engine.MaxParallel != 4 {
		t.Errorf("max_parallel = %d", cfg.Engine.MaxParallel)
	}
	if cfg.Ledger.SQLite.Path != "/tmp/test-ledger.db" {
		t.Errorf("ledger path = %q", cfg.Ledger.SQLite.Path)
	}
	if cfg.Ledger.Retention.Days != 30 {
		t.Errorf("retention days = %d", cfg.Ledger.Retention.Days)
	}

	// Unset fields get defaults.
	if cfg.Enforcement.HookTimeout != DefaultHookTimeout {
		t.Errorf("hook_timeout = %v", cfg.Enforcement.HookTimeout)
	}
	if cfg.Telemetry.Logging.Format != DefaultLoggingFormat {
		t.Errorf("logging format = %q", cfg.Telemetry.Logging.Format)
	}
	if cfg.Acks.Backend != DefaultAckBackend {
		t.Errorf("acks backend = %q", cfg.Acks.Backend)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/warden.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := writeConfig(t, "policy: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
	if cfg.Ledger.Backend != "sqlite" || !cfg.Ledger.SQLite.WALMode {
		t.Errorf("ledger = %+v", cfg.Ledger)
	}
	if cfg.Ledger.Retention.PruneSchedule != "" {
		t.Error("retention should be off by default")
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	a := Default()
	b := Default()
	ApplyDefaults(b)
	if *a != *b {
		t.Error("ApplyDefaults is not idempotent")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(cfg *Config) {},
			wantErr: "",
		},
		{
			name:    "unknown ledger backend",
			mutate:  func(cfg *Config) { cfg.Ledger.Backend = "postgres" },
			wantErr: "ledger.backend",
		},
		{
			name:    "watch without dir",
			mutate:  func(cfg *Config) { cfg.Policy.Watch = true },
			wantErr: "policy.watch",
		},
		{
			name:    "hook timeout too small",
			mutate:  func(cfg *Config) { cfg.Enforcement.HookTimeout = time.Millisecond },
			wantErr: "enforcement.hook_timeout",
		},
		{
			name:    "bad cron expression",
			mutate:  func(cfg *Config) { cfg.Ledger.Retention.PruneSchedule = "not cron" },
			wantErr: "ledger.retention.prune_schedule",
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Telemetry.Logging.Level = "verbose" },
			wantErr: "telemetry.logging.level",
		},
		{
			name:    "metrics path without slash",
			mutate:  func(cfg *Config) { cfg.Telemetry.Metrics.Path = "metrics" },
			wantErr: "telemetry.metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantErr {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantErr, verr.Errors)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Ledger.Backend = "postgres"
	cfg.Acks.Backend = "redis"
	cfg.Telemetry.Logging.Format = "xml"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() = %v, want ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(verr.Errors), verr.Errors)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
ledger:
  backend: sqlite
  sqlite:
    path: /tmp/from-file.db
`)

	t.Setenv("WARDEN_LEDGER_BACKEND", "memory")
	t.Setenv("WARDEN_ENGINE_MAX_PARALLEL", "16")
	t.Setenv("WARDEN_ENFORCEMENT_HOOK_TIMEOUT", "2s")
	t.Setenv("WARDEN_TELEMETRY_METRICS_ENABLED", "false")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() = %v", err)
	}

	if cfg.Ledger.Backend != "memory" {
		t.Errorf("ledger backend = %q, env override lost", cfg.Ledger.Backend)
	}
	if cfg.Engine.MaxParallel != 16 {
		t.Errorf("max_parallel = %d", cfg.Engine.MaxParallel)
	}
	if cfg.Enforcement.HookTimeout != 2*time.Second {
		t.Errorf("hook_timeout = %v", cfg.Enforcement.HookTimeout)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should be disabled by env override")
	}
	// File value untouched by unrelated overrides.
	if cfg.Ledger.SQLite.Path != "/tmp/from-file.db" {
		t.Errorf("sqlite path = %q", cfg.Ledger.SQLite.Path)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidAfterOverride(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("WARDEN_LEDGER_BACKEND", "postgres")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("expected validation failure after override")
	}
}
