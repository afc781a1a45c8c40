package enforcement

import (
	"context"
	"sort"
	"sync"

	"fleetgrid/warden/pkg/ack"
	"fleetgrid/warden/pkg/event"
	"fleetgrid/warden/pkg/ledger"
	"fleetgrid/warden/pkg/policy/ast"
)

// Hook applies one enforcement action for its domain. Implementations talk
// to fleet systems (vehicle control, dispatch, maintenance scheduling) and
// must honor ctx cancellation.
//
// The returned outcome is the hook's judgment: OutcomeAllowed or
// OutcomeBlocked settle the action, OutcomeEscalated refuses to act
// autonomously and forces human approval. An error is treated like an
// escalation by the dispatcher.
type Hook interface {
	Apply(ctx context.Context, action ast.Action, hctx *Context) (ledger.Outcome, error)
}

// Context carries the facts of the violation into a hook, plus read-only
// lookups. Hooks never write to the ledger or the acknowledgment store.
type Context struct {
	Event     *event.Event
	Policy    *ast.Policy
	Verdict   *ledger.Verdict
	Violation *ledger.Violation

	// Acks answers whether a subject signed off on a policy version.
	Acks AckReader

	// Ledger exposes violation history for repeat-offense logic.
	Ledger LedgerReader
}

// AckReader is the acknowledgment lookup hooks may use.
type AckReader interface {
	Has(ctx context.Context, tenantID, policyID string, version int, subjectID string) (bool, error)
}

// LedgerReader is the violation lookup hooks may use.
type LedgerReader interface {
	ListViolations(ctx context.Context, q *ledger.Query) ([]*ledger.Violation, error)
}

var _ AckReader = (*ack.Tracker)(nil)

// Registry maps domains to hooks. It is populated at startup and read-only
// afterwards; Register during dispatch is a programming error.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]Hook)}
}

// Register binds a hook to a domain, replacing any previous binding.
func (r *Registry) Register(domain string, h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[domain] = h
}

// Get returns the hook for a domain.
func (r *Registry) Get(domain string) (Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hooks[domain]
	return h, ok
}

// Domains returns the registered domains, sorted.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.hooks))
	for d := range r.hooks {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
