package warden

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fleetgrid/warden/pkg/ack"
	"fleetgrid/warden/pkg/enforcement"
	"fleetgrid/warden/pkg/engine"
	"fleetgrid/warden/pkg/event"
	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/ledger/export"
	"fleetgrid/warden/pkg/policy/ast"
	"fleetgrid/warden/pkg/policy/store"
)

// Service is the external contract of the engine. SubmitEvent is the only
// write path into evaluation; everything else is lifecycle management and
// queries over what evaluation produced.
type Service struct {
	policies   *store.Store
	engine     *engine.Engine
	dispatcher *enforcement.Dispatcher
	storage    ledger.Storage
	acks       *ack.Tracker
	logger     *slog.Logger
}

// New assembles the service facade from its components.
func New(policies *store.Store, eng *engine.Engine, dispatcher *enforcement.Dispatcher, storage ledger.Storage, acks *ack.Tracker) *Service {
	return &Service{
		policies:   policies,
		engine:     eng,
		dispatcher: dispatcher,
		storage:    storage,
		acks:       acks,
		logger:     slog.Default().With("component", "warden"),
	}
}

// SubmitEvent evaluates an event against its tenant's active policies and
// enforces the results. Every verdict is persisted before this returns, and
// violating verdicts are dispatched per their policy's mode. A ledger write
// failure after successful evaluation fails the request; the audit trail is
// never allowed to lag the decision.
func (s *Service) SubmitEvent(ctx context.Context, ev *event.Event) ([]*ledger.Verdict, error) {
	if ev != nil && ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	verdicts, err := s.engine.EvaluateEvent(ctx, ev)
	if err != nil {
		return nil, err
	}

	for _, v := range verdicts {
		if err := s.storage.AppendVerdict(ctx, v); err != nil {
			return nil, fmt.Errorf("persist verdict for policy %s: %w", v.PolicyID, err)
		}
	}

	for _, v := range verdicts {
		p, err := s.policies.Get(ev.TenantID, v.PolicyID)
		if err != nil {
			var nf *store.NotFoundError
			if errors.As(err, &nf) {
				// The policy left the store between evaluation and
				// dispatch. The verdict is already on record.
				s.logger.Warn("policy gone before dispatch",
					"tenant_id", ev.TenantID,
					"policy_id", v.PolicyID,
				)
				continue
			}
			return nil, err
		}
		if _, _, err := s.dispatcher.Dispatch(ctx, v, p, ev); err != nil {
			return nil, fmt.Errorf("dispatch policy %s: %w", v.PolicyID, err)
		}
	}

	return verdicts, nil
}

// RecordAcknowledgment records a subject's signed acknowledgment of a policy
// version. Idempotent: a duplicate call returns the stored row.
func (s *Service) RecordAcknowledgment(ctx context.Context, tenantID, policyID string, version int, subjectID string, signature []byte) (*ack.Acknowledgment, error) {
	if _, err := s.policies.Get(tenantID, policyID); err != nil {
		return nil, err
	}
	return s.acks.Record(ctx, tenantID, policyID, version, subjectID, signature)
}

// AcknowledgeViolation moves an open violation to acknowledged.
func (s *Service) AcknowledgeViolation(ctx context.Context, tenantID, violationID, actor string) error {
	return s.storage.TransitionViolation(ctx, tenantID, violationID,
		ledger.StatusOpen, ledger.StatusAcknowledged, actor, "")
}

// ResolveViolation resolves a violation from whatever non-resolved status it
// currently holds. The underlying compare-and-swap returns
// ErrConcurrentModification when the status moved underneath the caller;
// retrying re-reads the fresh status.
func (s *Service) ResolveViolation(ctx context.Context, tenantID, violationID, actor, resolution string) error {
	v, err := s.storage.GetViolation(ctx, tenantID, violationID)
	if err != nil {
		return err
	}
	return s.storage.TransitionViolation(ctx, tenantID, violationID,
		v.Status, ledger.StatusResolved, actor, resolution)
}

// ApproveExecution settles an approval_pending execution. approve=true
// applies the action (allowed); approve=false rejects it (blocked). The
// decision updates the existing execution row, never creates a second one.
func (s *Service) ApproveExecution(ctx context.Context, tenantID, executionID string, approve bool, decidedBy, reason string) error {
	outcome := ledger.OutcomeBlocked
	if approve {
		outcome = ledger.OutcomeAllowed
	}
	return s.storage.DecideExecution(ctx, tenantID, executionID, outcome, decidedBy, reason)
}

// ListViolations returns violations matching the query, newest first.
func (s *Service) ListViolations(ctx context.Context, q *ledger.Query) ([]*ledger.Violation, error) {
	return s.storage.ListViolations(ctx, q)
}

// GetPolicyHistory returns every version of a policy, oldest first.
func (s *Service) GetPolicyHistory(tenantID, policyID string) ([]*ast.Policy, error) {
	return s.policies.History(tenantID, policyID)
}

// ExportComplianceAudit collects every decision record for a tenant over a
// time window into an audit bundle. Rendering to JSON or CSV is the export
// package's job.
func (s *Service) ExportComplianceAudit(ctx context.Context, tenantID string, from, to time.Time) (*export.Bundle, error) {
	q := &ledger.Query{TenantID: tenantID, Start: &from, End: &to}

	verdicts, err := s.storage.ListVerdicts(ctx, q)
	if err != nil {
		return nil, err
	}
	violations, err := s.storage.ListViolations(ctx, q)
	if err != nil {
		return nil, err
	}
	executions, err := s.storage.ListExecutions(ctx, q)
	if err != nil {
		return nil, err
	}

	return &export.Bundle{
		TenantID:    tenantID,
		From:        from,
		To:          to,
		GeneratedAt: time.Now().UTC(),
		Verdicts:    verdicts,
		Violations:  violations,
		Executions:  executions,
	}, nil
}
