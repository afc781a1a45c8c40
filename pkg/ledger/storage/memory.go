package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"fleetgrid/warden/pkg/ledger"
)

// MemoryStorage implements ledger.Storage in memory. It is intended for
// tests and development; records do not survive a restart.
type MemoryStorage struct {
	mu         sync.RWMutex
	verdicts   map[string]*ledger.Verdict
	violations map[string]*ledger.Violation
	executions map[string]*ledger.Execution
}

// NewMemoryStorage creates an empty in-memory ledger backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		verdicts:   make(map[string]*ledger.Verdict),
		violations: make(map[string]*ledger.Violation),
		executions: make(map[string]*ledger.Execution),
	}
}

// AppendVerdict stores a copy of the verdict.
func (s *MemoryStorage) AppendVerdict(_ context.Context, v *ledger.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.verdicts[v.ID] = &cp
	return nil
}

// AppendViolation stores a copy of the violation.
func (s *MemoryStorage) AppendViolation(_ context.Context, v *ledger.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.violations[v.ID] = &cp
	return nil
}

// AppendExecution stores a copy of the execution.
func (s *MemoryStorage) AppendExecution(_ context.Context, e *ledger.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.executions[e.ID] = &cp
	return nil
}

// GetViolation returns a copy of one violation scoped to tenantID.
func (s *MemoryStorage) GetViolation(_ context.Context, tenantID, id string) (*ledger.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.violations[id]
	if !ok || v.TenantID != tenantID {
		return nil, ledger.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// GetExecution returns a copy of one execution scoped to tenantID.
func (s *MemoryStorage) GetExecution(_ context.Context, tenantID, id string) (*ledger.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[id]
	if !ok || e.TenantID != tenantID {
		return nil, ledger.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// TransitionViolation applies a status change under the store lock, checking
// the expected status first so concurrent callers observe CAS semantics.
func (s *MemoryStorage) TransitionViolation(_ context.Context, tenantID, id string, expected, next ledger.ViolationStatus, by, resolution string) error {
	if !ledger.ValidTransition(expected, next) {
		return &ledger.InvalidTransitionError{ViolationID: id, From: expected, To: next}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.violations[id]
	if !ok || v.TenantID != tenantID {
		return ledger.ErrNotFound
	}
	if v.Status != expected {
		return ledger.ErrConcurrentModification
	}

	now := time.Now().UTC()
	v.Status = next
	v.Sequence++
	switch next {
	case ledger.StatusAcknowledged:
		v.AcknowledgedAt = &now
	case ledger.StatusResolved:
		v.ResolvedAt = &now
		v.Resolution = resolution
		v.ResolvedBy = by
	}
	return nil
}

// DecideExecution settles an approval_pending execution in place.
func (s *MemoryStorage) DecideExecution(_ context.Context, tenantID, id string, outcome ledger.Outcome, decidedBy, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.executions[id]
	if !ok || e.TenantID != tenantID {
		return ledger.ErrNotFound
	}
	if e.Outcome != ledger.OutcomeApprovalPending {
		return ledger.ErrConcurrentModification
	}

	now := time.Now().UTC()
	e.Outcome = outcome
	e.DecidedBy = decidedBy
	e.DecidedAt = &now
	e.Reason = reason
	e.Sequence++
	return nil
}

// ListVerdicts returns verdicts matching the query, newest first.
func (s *MemoryStorage) ListVerdicts(_ context.Context, q *ledger.Query) ([]*ledger.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Verdict
	for _, v := range s.verdicts {
		if v.TenantID != q.TenantID {
			continue
		}
		if q.PolicyID != "" && v.PolicyID != q.PolicyID {
			continue
		}
		if q.EntityID != "" && v.EntityID != q.EntityID {
			continue
		}
		if q.Domain != "" && v.Domain != q.Domain {
			continue
		}
		if !inRange(v.EvaluatedAt, q) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EvaluatedAt.After(out[j].EvaluatedAt) })
	return paginate(out, q), nil
}

// ListViolations returns violations matching the query, newest first.
func (s *MemoryStorage) ListViolations(_ context.Context, q *ledger.Query) ([]*ledger.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Violation
	for _, v := range s.violations {
		if v.TenantID != q.TenantID {
			continue
		}
		if q.PolicyID != "" && v.PolicyID != q.PolicyID {
			continue
		}
		if q.EntityID != "" && v.EntityID != q.EntityID {
			continue
		}
		if q.Domain != "" && v.Domain != q.Domain {
			continue
		}
		if q.Status != "" && v.Status != q.Status {
			continue
		}
		if q.Severity != "" && v.Severity != q.Severity {
			continue
		}
		if !inRange(v.OpenedAt, q) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	return paginate(out, q), nil
}

// ListExecutions returns executions matching the query, newest first.
func (s *MemoryStorage) ListExecutions(_ context.Context, q *ledger.Query) ([]*ledger.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Execution
	for _, e := range s.executions {
		if e.TenantID != q.TenantID {
			continue
		}
		if q.PolicyID != "" && e.PolicyID != q.PolicyID {
			continue
		}
		if q.ViolationID != "" && e.ViolationID != q.ViolationID {
			continue
		}
		if !inRange(e.ExecutedAt, q) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExecutedAt.After(out[j].ExecutedAt) })
	return paginate(out, q), nil
}

// PruneBefore deletes records older than cutoff. Open violations and
// pending executions survive regardless of age.
func (s *MemoryStorage) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for id, v := range s.verdicts {
		if v.EvaluatedAt.Before(cutoff) {
			delete(s.verdicts, id)
			total++
		}
	}
	for id, e := range s.executions {
		if e.ExecutedAt.Before(cutoff) && e.Outcome != ledger.OutcomeApprovalPending {
			delete(s.executions, id)
			total++
		}
	}
	for id, v := range s.violations {
		if v.OpenedAt.Before(cutoff) && v.Status == ledger.StatusResolved {
			delete(s.violations, id)
			total++
		}
	}
	return total, nil
}

// PruneVerdictsOverCount keeps the newest max verdicts and deletes the
// rest.
func (s *MemoryStorage) PruneVerdictsOverCount(_ context.Context, max int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if int64(len(s.verdicts)) <= max {
		return 0, nil
	}

	all := make([]*ledger.Verdict, 0, len(s.verdicts))
	for _, v := range s.verdicts {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].EvaluatedAt.After(all[j].EvaluatedAt) })

	var pruned int64
	for _, v := range all[max:] {
		delete(s.verdicts, v.ID)
		pruned++
	}
	return pruned, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}

func inRange(t time.Time, q *ledger.Query) bool {
	if q.Start != nil && t.Before(*q.Start) {
		return false
	}
	if q.End != nil && t.After(*q.End) {
		return false
	}
	return true
}

func paginate[T any](items []T, q *ledger.Query) []T {
	if q.Offset > 0 {
		if q.Offset >= len(items) {
			return nil
		}
		items = items[q.Offset:]
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items
}
