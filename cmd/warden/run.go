package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fleetgrid/warden/pkg/ack"
	"fleetgrid/warden/pkg/config"
	"fleetgrid/warden/pkg/enforcement"
	"fleetgrid/warden/pkg/enforcement/hooks"
	"fleetgrid/warden/pkg/engine"
	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/ledger/retention"
	"fleetgrid/warden/pkg/ledger/storage"
	"fleetgrid/warden/pkg/policy/source"
	"fleetgrid/warden/pkg/policy/store"
	"fleetgrid/warden/pkg/telemetry/logging"
	"fleetgrid/warden/pkg/telemetry/metrics"
	"fleetgrid/warden/pkg/warden"
)

var runFlags struct {
	logLevel string
	dryRun   bool
	events   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Warden engine",
	Long: `Start the Warden policy evaluation and enforcement engine.

The engine loads policies from the configured backend (and optionally a
policy YAML directory with hot reload), opens the decision ledger and
acknowledgment store, registers the built-in enforcement hooks, and serves
Prometheus metrics.

Examples:
  # Start with default config
  warden run

  # Start with custom config
  warden run --config /etc/warden/warden.yaml

  # Validate config without starting
  warden run --dry-run

  # Pipe newline-delimited JSON events through the engine
  cat events.ndjson | warden run --events -`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().StringVar(&runFlags.events, "events", "", "read newline-delimited JSON events from a file, or - for stdin")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	}); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Warden %s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector(&metrics.Config{
		Enabled: cfg.Telemetry.Metrics.Enabled,
	}, nil)

	// Policy store
	policies, err := openPolicyStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer policies.Close()
	fmt.Println("✓ Policy store initialized")

	// Decision ledger
	ledgerStore, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer ledgerStore.Close()
	fmt.Println("✓ Decision ledger initialized")

	// Acknowledgment tracker
	tracker, err := openAckTracker(cfg)
	if err != nil {
		return err
	}
	defer tracker.Close()

	// Built-in enforcement hooks, keyed by domain.
	registry := enforcement.NewRegistry()
	registry.Register("safety", hooks.NewSafetyHook())
	registry.Register("maintenance", hooks.NewMaintenanceHook())
	registry.Register("dispatch", hooks.NewDispatchHook())

	eng := engine.New(policies, collector, cfg.Engine.MaxParallel)
	dispatcher := enforcement.NewDispatcher(registry, ledgerStore, tracker, collector, &enforcement.Config{
		HookTimeout: cfg.Enforcement.HookTimeout,
	})
	svc := warden.New(policies, eng, dispatcher, ledgerStore, tracker)

	// Policy file source: initial sync, then optional watch.
	if cfg.Policy.Dir != "" {
		fileSource := source.NewFileSource(cfg.Policy.Dir)
		count, err := source.Sync(ctx, fileSource, policies)
		if err != nil {
			return fmt.Errorf("load policy directory: %w", err)
		}
		fmt.Printf("✓ Policies loaded from %s (%d written)\n", cfg.Policy.Dir, count)

		if cfg.Policy.Watch {
			watcher, err := source.NewWatcher(cfg.Policy.Dir, cfg.Policy.WatchDebounce)
			if err != nil {
				return fmt.Errorf("create policy watcher: %w", err)
			}
			defer watcher.Stop()
			go func() {
				err := watcher.Watch(ctx, func() error {
					_, err := source.Sync(ctx, fileSource, policies)
					if err == nil {
						collector.RecordPolicyReload()
					}
					return err
				})
				if err != nil {
					slog.Error("policy watcher exited", "error", err)
				}
			}()
			fmt.Println("✓ Policy hot reload enabled")
		}
	}

	// Event intake. Hub transports attach to the facade in-process; the
	// binary itself accepts newline-delimited JSON events from a file or
	// stdin.
	if runFlags.events != "" {
		in := os.Stdin
		if runFlags.events != "-" {
			f, err := os.Open(runFlags.events)
			if err != nil {
				return fmt.Errorf("open event source: %w", err)
			}
			defer f.Close()
			in = f
		}
		go func() {
			if err := submitEvents(ctx, svc, in); err != nil {
				slog.Error("event intake stopped", "error", err)
			}
		}()
		fmt.Printf("✓ Event intake: %s\n", runFlags.events)
	}

	// Ledger retention (opt-in).
	if cfg.Ledger.Retention.PruneSchedule != "" {
		prunable, ok := ledgerStore.(retention.PrunableStorage)
		if !ok {
			slog.Warn("ledger backend does not support pruning, retention disabled",
				"backend", cfg.Ledger.Backend)
		} else {
			pruner := retention.NewPruner(prunable, &retention.Config{
				RetentionDays: cfg.Ledger.Retention.Days,
				MaxVerdicts:   cfg.Ledger.Retention.MaxVerdicts,
				PruneSchedule: cfg.Ledger.Retention.PruneSchedule,
			}, collector)
			scheduler := retention.NewScheduler(pruner)
			if err := scheduler.Start(ctx); err != nil {
				return fmt.Errorf("start retention scheduler: %w", err)
			}
			defer scheduler.Stop()
			fmt.Printf("✓ Retention scheduler started (%s)\n", cfg.Ledger.Retention.PruneSchedule)
		}
	}

	// Metrics endpoint.
	var metricsSrv *http.Server
	errChan := make(chan error, 1)
	if cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
		metricsSrv = &http.Server{
			Addr:    cfg.Telemetry.Metrics.ListenAddress,
			Handler: mux,
		}
		go func() {
			slog.Info("metrics server listening",
				"address", cfg.Telemetry.Metrics.ListenAddress,
				"path", cfg.Telemetry.Metrics.Path,
			)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	fmt.Println("\nEngine running. Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		if metricsSrv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}

		fmt.Println("✓ Engine stopped")
		return nil
	}
}

// loadRunConfig reads the config file named by --config, falling back to
// built-in defaults when the default file is absent.
func loadRunConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) && !rootCmd.PersistentFlags().Changed("config") {
		return config.Default(), nil
	}
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func openPolicyStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	var backend store.Backend
	switch cfg.Policy.Backend {
	case "sqlite":
		b, err := store.NewSQLiteBackend(cfg.Policy.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open policy database: %w", err)
		}
		backend = b
	case "memory":
		backend = store.NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported policy backend: %s", cfg.Policy.Backend)
	}
	return store.New(ctx, backend)
}

func openLedger(cfg *config.Config) (ledger.Storage, error) {
	switch cfg.Ledger.Backend {
	case "sqlite":
		return storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Ledger.SQLite.Path,
			MaxOpenConns: cfg.Ledger.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Ledger.SQLite.MaxIdleConns,
			WALMode:      cfg.Ledger.SQLite.WALMode,
			BusyTimeout:  cfg.Ledger.SQLite.BusyTimeout,
		})
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", cfg.Ledger.Backend)
	}
}

func openAckTracker(cfg *config.Config) (*ack.Tracker, error) {
	switch cfg.Acks.Backend {
	case "sqlite":
		st, err := ack.NewSQLiteStore(cfg.Acks.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open acknowledgment database: %w", err)
		}
		return ack.NewTracker(st), nil
	case "memory":
		return ack.NewTracker(ack.NewMemoryStore()), nil
	default:
		return nil, fmt.Errorf("unsupported acknowledgment backend: %s", cfg.Acks.Backend)
	}
}
