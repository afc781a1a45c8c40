package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fleetgrid/warden/pkg/telemetry/metrics"
)

// PrunableStorage is the subset of ledger backends retention needs. Both
// the memory and SQLite backends implement it. Backends guarantee that open
// violations and pending executions survive pruning.
type PrunableStorage interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	PruneVerdictsOverCount(ctx context.Context, max int64) (int64, error)
}

// Config contains retention configuration. The zero value disables all
// pruning; retention is an ops add-on, not a default behavior.
type Config struct {
	// RetentionDays is the number of days to retain ledger records.
	// 0 means keep records forever.
	RetentionDays int

	// MaxVerdicts caps the verdict count; the oldest beyond the cap are
	// deleted. 0 means unlimited.
	MaxVerdicts int64

	// PruneSchedule is a cron expression (e.g. "0 3 * * *" for daily at
	// 3 AM). Empty disables the scheduler.
	PruneSchedule string
}

// Pruner enforces the retention configuration against ledger storage.
type Pruner struct {
	storage PrunableStorage
	config  *Config
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewPruner creates a pruner. A nil config disables pruning.
func NewPruner(storage PrunableStorage, config *Config, collector *metrics.Collector) *Pruner {
	if config == nil {
		config = &Config{}
	}
	return &Pruner{
		storage: storage,
		config:  config,
		metrics: collector,
		logger:  slog.Default().With("component", "ledger.retention"),
	}
}

// Prune runs one pruning pass: age-based first, then the verdict count
// cap. Returns the total rows removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.storage.PruneBefore(ctx, cutoff)
		total += deleted
		if err != nil {
			return total, fmt.Errorf("prune by age: %w", err)
		}
		p.logger.Info("pruned records by age",
			"deleted", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxVerdicts > 0 {
		deleted, err := p.storage.PruneVerdictsOverCount(ctx, p.config.MaxVerdicts)
		total += deleted
		if err != nil {
			return total, fmt.Errorf("prune by count: %w", err)
		}
		p.logger.Info("pruned verdicts by count",
			"deleted", deleted,
			"max_verdicts", p.config.MaxVerdicts,
		)
	}

	if p.metrics != nil {
		p.metrics.RecordRetentionPruned(int(total))
	}
	return total, nil
}
