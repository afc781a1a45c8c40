package enforcement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleetgrid/warden/pkg/event"
	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/policy/ast"
	"fleetgrid/warden/pkg/telemetry/metrics"
)

// DefaultHookTimeout bounds a single hook call.
const DefaultHookTimeout = 5 * time.Second

// SystemActor marks records written without a human in the loop.
const SystemActor = "system"

// Dispatcher turns violating verdicts into violations and executions per
// the policy's operating mode. All records it produces are persisted before
// Dispatch returns; a storage failure fails the dispatch.
type Dispatcher struct {
	registry    *Registry
	storage     ledger.Storage
	acks        AckReader
	metrics     *metrics.Collector
	hookTimeout time.Duration
	logger      *slog.Logger
}

// Config configures a Dispatcher.
type Config struct {
	// HookTimeout bounds autonomous hook calls. Default: 5 seconds.
	HookTimeout time.Duration
}

// NewDispatcher creates a dispatcher. acks may be nil when no hook needs
// acknowledgment lookups.
func NewDispatcher(registry *Registry, storage ledger.Storage, acks AckReader, collector *metrics.Collector, cfg *Config) *Dispatcher {
	timeout := DefaultHookTimeout
	if cfg != nil && cfg.HookTimeout > 0 {
		timeout = cfg.HookTimeout
	}
	return &Dispatcher{
		registry:    registry,
		storage:     storage,
		acks:        acks,
		metrics:     collector,
		hookTimeout: timeout,
		logger:      slog.Default().With("component", "enforcement"),
	}
}

// IsViolation interprets a verdict under its policy's polarity. Degraded
// verdicts never count: a verdict the evaluator could not trust does not
// open violations or trigger actions.
func IsViolation(v *ledger.Verdict, p *ast.Policy) bool {
	if v.Degraded {
		return false
	}
	if p.IsViolationWhenSatisfied() {
		return v.Satisfied
	}
	return !v.Satisfied
}

// Dispatch processes one verdict. Non-violating verdicts return (nil, nil,
// nil). For violations it writes the violation record, then branches on
// mode:
//
//   - monitor: the violation is the whole response.
//   - human_in_loop: each action parks as an approval_pending execution.
//   - autonomous: the domain hook runs under the configured timeout.
//     Allowed and blocked settle the execution; escalation, hook errors,
//     timeouts, and missing hooks all land on the approval_pending path.
func (d *Dispatcher) Dispatch(ctx context.Context, verdict *ledger.Verdict, policy *ast.Policy, ev *event.Event) (*ledger.Violation, []*ledger.Execution, error) {
	if !IsViolation(verdict, policy) {
		return nil, nil, nil
	}

	violation := &ledger.Violation{
		ID:            uuid.NewString(),
		TenantID:      verdict.TenantID,
		VerdictID:     verdict.ID,
		PolicyID:      policy.ID,
		PolicyVersion: policy.Version,
		EventID:       verdict.EventID,
		EntityID:      verdict.EntityID,
		Domain:        verdict.Domain,
		Severity:      policy.Severity,
		Status:        ledger.StatusOpen,
		OpenedAt:      time.Now().UTC(),
	}

	if err := d.storage.AppendViolation(ctx, violation); err != nil {
		d.recordLedgerWrite("violation", err)
		return nil, nil, err
	}
	d.recordLedgerWrite("violation", nil)
	if d.metrics != nil {
		d.metrics.RecordViolation(violation.TenantID, string(violation.Severity))
	}

	d.logger.Info("violation opened",
		"tenant_id", violation.TenantID,
		"policy_id", policy.ID,
		"entity_id", violation.EntityID,
		"severity", violation.Severity,
		"mode", policy.Mode,
	)

	if policy.Mode == ast.ModeMonitor || len(policy.Actions) == 0 {
		return violation, nil, nil
	}

	var executions []*ledger.Execution
	for _, action := range policy.Actions {
		exec, err := d.executeAction(ctx, action, verdict, policy, ev, violation)
		if err != nil {
			return violation, executions, err
		}
		executions = append(executions, exec)
	}
	return violation, executions, nil
}

// executeAction produces and persists one execution record for an action.
func (d *Dispatcher) executeAction(ctx context.Context, action ast.Action, verdict *ledger.Verdict, policy *ast.Policy, ev *event.Event, violation *ledger.Violation) (*ledger.Execution, error) {
	exec := &ledger.Execution{
		ID:          uuid.NewString(),
		TenantID:    verdict.TenantID,
		ViolationID: violation.ID,
		PolicyID:    policy.ID,
		Action:      action,
		ExecutedBy:  SystemActor,
		ExecutedAt:  time.Now().UTC(),
	}

	switch policy.Mode {
	case ast.ModeHumanInLoop:
		exec.Outcome = ledger.OutcomeApprovalPending
		exec.Reason = "awaiting human approval"

	case ast.ModeAutonomous:
		outcome, reason := d.applyHook(ctx, action, verdict, policy, ev, violation)
		exec.Outcome = outcome
		exec.Reason = reason

	default:
		exec.Outcome = ledger.OutcomeApprovalPending
		exec.Reason = "unknown policy mode"
	}

	if err := d.storage.AppendExecution(ctx, exec); err != nil {
		d.recordLedgerWrite("execution", err)
		return nil, err
	}
	d.recordLedgerWrite("execution", nil)
	return exec, nil
}

// applyHook runs the domain hook under the timeout and maps every failure
// mode onto the approval path. The returned outcome is what gets recorded:
// escalations are stored as approval_pending so the approval CAS applies
// uniformly.
func (d *Dispatcher) applyHook(ctx context.Context, action ast.Action, verdict *ledger.Verdict, policy *ast.Policy, ev *event.Event, violation *ledger.Violation) (ledger.Outcome, string) {
	hook, ok := d.registry.Get(policy.Domain)
	if !ok {
		err := &HookUnavailableError{Domain: policy.Domain}
		d.logger.Warn("hook unavailable, escalating", "domain", policy.Domain, "policy_id", policy.ID)
		d.recordHook(policy.Domain, "unavailable", 0)
		return ledger.OutcomeApprovalPending, err.Error()
	}

	hctx := &Context{
		Event:     ev,
		Policy:    policy,
		Verdict:   verdict,
		Violation: violation,
		Acks:      d.acks,
		Ledger:    d.storage,
	}

	callCtx, cancel := context.WithTimeout(ctx, d.hookTimeout)
	defer cancel()

	type hookResult struct {
		outcome ledger.Outcome
		err     error
	}
	resultCh := make(chan hookResult, 1)
	start := time.Now()

	go func() {
		outcome, err := hook.Apply(callCtx, action, hctx)
		resultCh <- hookResult{outcome, err}
	}()

	select {
	case <-callCtx.Done():
		err := &HookTimeoutError{Domain: policy.Domain, Timeout: d.hookTimeout}
		d.logger.Error("hook timed out, escalating",
			"domain", policy.Domain,
			"policy_id", policy.ID,
			"timeout", d.hookTimeout,
		)
		d.recordHook(policy.Domain, "timeout", time.Since(start))
		return ledger.OutcomeApprovalPending, err.Error()

	case res := <-resultCh:
		elapsed := time.Since(start)
		if res.err != nil {
			d.logger.Error("hook failed, escalating",
				"domain", policy.Domain,
				"policy_id", policy.ID,
				"error", res.err,
			)
			d.recordHook(policy.Domain, "error", elapsed)
			return ledger.OutcomeApprovalPending, "hook error: " + res.err.Error()
		}

		switch res.outcome {
		case ledger.OutcomeAllowed, ledger.OutcomeBlocked:
			d.recordHook(policy.Domain, string(res.outcome), elapsed)
			return res.outcome, ""
		case ledger.OutcomeEscalated:
			d.recordHook(policy.Domain, "escalated", elapsed)
			return ledger.OutcomeApprovalPending, "escalated by hook"
		default:
			// An outcome outside the contract is not an allow.
			d.recordHook(policy.Domain, "invalid", elapsed)
			return ledger.OutcomeApprovalPending, "invalid hook outcome: " + string(res.outcome)
		}
	}
}

func (d *Dispatcher) recordHook(domain, outcome string, elapsed time.Duration) {
	if d.metrics != nil {
		d.metrics.RecordHook(domain, outcome, elapsed)
	}
}

func (d *Dispatcher) recordLedgerWrite(record string, err error) {
	if d.metrics != nil {
		d.metrics.RecordLedgerWrite(record, err)
	}
}
