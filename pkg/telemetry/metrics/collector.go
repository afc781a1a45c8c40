package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains metrics configuration.
type Config struct {
	// Enabled turns metric recording on. A disabled collector is a no-op.
	Enabled bool

	// Namespace for all metric names. Default: "fleetgrid".
	Namespace string

	// Subsystem for all metric names. Default: "warden".
	Subsystem string

	// EvaluationDurationBuckets overrides the evaluation latency histogram
	// buckets. Defaults cover 100µs to 1s.
	EvaluationDurationBuckets []float64

	// HookDurationBuckets overrides the hook latency histogram buckets.
	// Defaults cover 1ms to 10s (hooks call out to fleet systems).
	HookDurationBuckets []float64
}

// Collector owns all Prometheus metrics for the engine. Components record
// through it; nothing else registers metrics.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	evaluationsTotal    *prometheus.CounterVec
	evaluationDuration  *prometheus.HistogramVec
	verdictsTotal       *prometheus.CounterVec
	violationsTotal     *prometheus.CounterVec
	hookOutcomesTotal   *prometheus.CounterVec
	hookDuration        *prometheus.HistogramVec
	ledgerWritesTotal   *prometheus.CounterVec
	policyReloadsTotal  prometheus.Counter
	retentionPrunedRows prometheus.Counter
}

// NewCollector creates a collector with its own registry unless one is
// supplied.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &Config{Enabled: true}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "fleetgrid"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "warden"
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		cfg.EvaluationDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0}
	}
	if len(cfg.HookDurationBuckets) == 0 {
		cfg.HookDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0}
	}

	c := &Collector{config: cfg, registry: registry}

	c.evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "evaluations_total",
		Help:      "Total events evaluated",
	}, []string{"tenant_id", "domain"})

	c.evaluationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "evaluation_duration_seconds",
		Help:      "Wall time to evaluate one event against its policy set",
		Buckets:   cfg.EvaluationDurationBuckets,
	}, []string{"domain"})

	c.verdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "verdicts_total",
		Help:      "Verdicts by result (satisfied, not_satisfied, degraded)",
	}, []string{"tenant_id", "result"})

	c.violationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "violations_total",
		Help:      "Violations opened, by severity",
	}, []string{"tenant_id", "severity"})

	c.hookOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "hook_outcomes_total",
		Help:      "Enforcement hook outcomes",
	}, []string{"domain", "outcome"})

	c.hookDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "hook_duration_seconds",
		Help:      "Enforcement hook call duration",
		Buckets:   cfg.HookDurationBuckets,
	}, []string{"domain"})

	c.ledgerWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "ledger_writes_total",
		Help:      "Ledger writes by record type and status",
	}, []string{"record", "status"})

	c.policyReloadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "policy_reloads_total",
		Help:      "Policy source reloads applied",
	})

	c.retentionPrunedRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "retention_pruned_rows_total",
		Help:      "Ledger rows removed by the retention pruner",
	})

	registry.MustRegister(
		c.evaluationsTotal,
		c.evaluationDuration,
		c.verdictsTotal,
		c.violationsTotal,
		c.hookOutcomesTotal,
		c.hookDuration,
		c.ledgerWritesTotal,
		c.policyReloadsTotal,
		c.retentionPrunedRows,
	)

	return c
}

// RecordEvaluation records one event evaluation.
func (c *Collector) RecordEvaluation(tenantID, domain string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.evaluationsTotal.WithLabelValues(tenantID, domain).Inc()
	c.evaluationDuration.WithLabelValues(domain).Observe(duration.Seconds())
}

// RecordVerdict records a verdict result: "satisfied", "not_satisfied" or
// "degraded".
func (c *Collector) RecordVerdict(tenantID, result string) {
	if !c.config.Enabled {
		return
	}
	c.verdictsTotal.WithLabelValues(tenantID, result).Inc()
}

// RecordViolation records an opened violation.
func (c *Collector) RecordViolation(tenantID, severity string) {
	if !c.config.Enabled {
		return
	}
	c.violationsTotal.WithLabelValues(tenantID, severity).Inc()
}

// RecordHook records an enforcement hook call.
func (c *Collector) RecordHook(domain, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.hookOutcomesTotal.WithLabelValues(domain, outcome).Inc()
	c.hookDuration.WithLabelValues(domain).Observe(duration.Seconds())
}

// RecordLedgerWrite records a ledger write attempt.
func (c *Collector) RecordLedgerWrite(record string, err error) {
	if !c.config.Enabled {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.ledgerWritesTotal.WithLabelValues(record, status).Inc()
}

// RecordPolicyReload records an applied policy source reload.
func (c *Collector) RecordPolicyReload() {
	if !c.config.Enabled {
		return
	}
	c.policyReloadsTotal.Inc()
}

// RecordRetentionPruned records rows removed by the retention pruner.
func (c *Collector) RecordRetentionPruned(rows int) {
	if !c.config.Enabled || rows <= 0 {
		return
	}
	c.retentionPrunedRows.Add(float64(rows))
}

// Handler returns the HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
