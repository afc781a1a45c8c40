package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fleetgrid/warden/pkg/event"
	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/policy/ast"
	"fleetgrid/warden/pkg/policy/evaluator"
	"fleetgrid/warden/pkg/policy/store"
	"fleetgrid/warden/pkg/telemetry/metrics"
)

// DefaultMaxParallel bounds per-event evaluation concurrency.
const DefaultMaxParallel = 8

// Engine evaluates events against the active policy set of their tenant and
// domain. Policies are evaluated independently on a bounded pool; one
// verdict is emitted per policy regardless of outcome, and a single broken
// policy degrades its own verdict instead of aborting the batch.
type Engine struct {
	store       *store.Store
	metrics     *metrics.Collector
	maxParallel int
	logger      *slog.Logger
}

// New creates an engine over the policy store. maxParallel <= 0 selects
// DefaultMaxParallel.
func New(st *store.Store, collector *metrics.Collector, maxParallel int) *Engine {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	return &Engine{
		store:       st,
		metrics:     collector,
		maxParallel: maxParallel,
		logger:      slog.Default().With("component", "engine"),
	}
}

// EvaluateEvent evaluates ev against every active policy for its tenant and
// domain. The verdict order matches the store's policy order; results do
// not depend on scheduling.
func (e *Engine) EvaluateEvent(ctx context.Context, ev *event.Event) ([]*ledger.Verdict, error) {
	if ev == nil {
		return nil, fmt.Errorf("engine: event cannot be nil")
	}
	if ev.TenantID == "" {
		return nil, fmt.Errorf("engine: event has no tenant id")
	}

	start := time.Now()
	policies := e.store.ActivePolicies(ev.TenantID, ev.Domain)
	verdicts := make([]*ledger.Verdict, len(policies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)

	for i, p := range policies {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			verdicts[i] = e.evaluatePolicy(p, ev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordEvaluation(ev.TenantID, ev.Domain, time.Since(start))
		for _, v := range verdicts {
			e.metrics.RecordVerdict(ev.TenantID, verdictResult(v))
		}
	}

	e.logger.Debug("event evaluated",
		"tenant_id", ev.TenantID,
		"domain", ev.Domain,
		"event_id", ev.ID,
		"policies", len(policies),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return verdicts, nil
}

// evaluatePolicy produces one verdict. The evaluator is total, but a policy
// whose persisted tree went missing or is structurally corrupt, or a panic
// from data the validator never saw, lands as a degraded verdict rather
// than an error.
func (e *Engine) evaluatePolicy(p *ast.Policy, ev *event.Event) (verdict *ledger.Verdict) {
	verdict = &ledger.Verdict{
		ID:            uuid.NewString(),
		TenantID:      ev.TenantID,
		PolicyID:      p.ID,
		PolicyVersion: p.Version,
		EventID:       ev.ID,
		EntityID:      ev.EntityID,
		Domain:        ev.Domain,
		EvaluatedAt:   time.Now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("policy evaluation panicked",
				"tenant_id", ev.TenantID,
				"policy_id", p.ID,
				"policy_version", p.Version,
				"panic", r,
			)
			verdict.Satisfied = false
			verdict.Confidence = 0
			verdict.Degraded = true
			verdict.TriggeredConditions = nil
		}
	}()

	if p.Conditions == nil {
		verdict.Degraded = true
		return verdict
	}

	result := evaluator.Evaluate(p.Conditions, ev)
	verdict.Satisfied = result.Satisfied
	verdict.Confidence = result.Confidence
	verdict.Degraded = result.Degraded
	verdict.TriggeredConditions = result.Triggered
	return verdict
}

func verdictResult(v *ledger.Verdict) string {
	switch {
	case v.Degraded:
		return "degraded"
	case v.Satisfied:
		return "satisfied"
	default:
		return "not_satisfied"
	}
}
