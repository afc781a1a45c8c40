package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"fleetgrid/warden/pkg/policy/ast"
	"fleetgrid/warden/pkg/policy/validator"
)

// Store holds versioned policies and serves the evaluation read path from
// immutable per-tenant snapshots. Writes rebuild the affected tenant's view
// and swap the snapshot pointer; readers never take a lock.
type Store struct {
	mu       sync.Mutex // serializes writes
	backend  Backend
	snapshot atomic.Pointer[snapshot]
	logger   *slog.Logger
}

// snapshot is the immutable read view. It is replaced wholesale on every
// write; nothing inside it is ever mutated.
type snapshot struct {
	tenants map[string]*tenantView
}

type tenantView struct {
	// byDomain holds the latest active version of each policy, keyed by
	// domain. This is the evaluation hot path.
	byDomain map[string][]*ast.Policy

	// latest maps policy id to its newest version.
	latest map[string]*ast.Policy

	// history maps policy id to all versions, ascending.
	history map[string][]*ast.Policy
}

// New creates a store over the given backend and hydrates the snapshot from
// persisted policies.
func New(ctx context.Context, backend Backend) (*Store, error) {
	s := &Store{
		backend: backend,
		logger:  slog.Default().With("component", "policy.store"),
	}

	policies, err := backend.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	byTenant := make(map[string][]*ast.Policy)
	for _, p := range policies {
		byTenant[p.TenantID] = append(byTenant[p.TenantID], p)
	}

	snap := &snapshot{tenants: make(map[string]*tenantView, len(byTenant))}
	for tenant, list := range byTenant {
		snap.tenants[tenant] = buildTenantView(list)
	}
	s.snapshot.Store(snap)

	s.logger.Info("policy store hydrated",
		"tenants", len(snap.tenants),
		"versions", len(policies),
	)
	return s, nil
}

// Put persists the policy as a new version and publishes a fresh tenant
// snapshot. The version is assigned by the store: latest + 1, or 1 for a new
// policy id. Validation failures leave both the backend and the snapshot
// untouched.
func (s *Store) Put(ctx context.Context, p *ast.Policy) (*ast.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := clonePolicy(p)
	now := time.Now().UTC()

	snap := s.snapshot.Load()
	if tv, ok := snap.tenants[cp.TenantID]; ok {
		if prev, ok := tv.latest[cp.ID]; ok {
			cp.Version = prev.Version + 1
			cp.CreatedAt = prev.CreatedAt
		}
	}
	if cp.Version == 0 {
		cp.Version = 1
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	if err := validator.Validate(cp); err != nil {
		return nil, err
	}

	if err := s.backend.SaveVersion(ctx, cp); err != nil {
		return nil, err
	}

	s.publish(cp.TenantID, func(versions []*ast.Policy) []*ast.Policy {
		return append(versions, cp)
	})

	s.logger.Info("policy version stored",
		"tenant_id", cp.TenantID,
		"policy_id", cp.ID,
		"version", cp.Version,
		"active", cp.Active,
	)
	return clonePolicy(cp), nil
}

// SetActive toggles the latest version of a policy. Deactivation removes it
// from the evaluation path without touching its history.
func (s *Store) SetActive(ctx context.Context, tenantID, policyID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot.Load()
	tv, ok := snap.tenants[tenantID]
	if !ok {
		return &NotFoundError{TenantID: tenantID, PolicyID: policyID}
	}
	prev, ok := tv.latest[policyID]
	if !ok {
		return &NotFoundError{TenantID: tenantID, PolicyID: policyID}
	}
	if prev.Active == active {
		return nil
	}

	if err := s.backend.SetActive(ctx, tenantID, policyID, prev.Version, active); err != nil {
		return err
	}

	cp := clonePolicy(prev)
	cp.Active = active
	cp.UpdatedAt = time.Now().UTC()

	s.publish(tenantID, func(versions []*ast.Policy) []*ast.Policy {
		out := make([]*ast.Policy, len(versions))
		copy(out, versions)
		for i, v := range out {
			if v.ID == policyID && v.Version == cp.Version {
				out[i] = cp
			}
		}
		return out
	})

	s.logger.Info("policy activation changed",
		"tenant_id", tenantID,
		"policy_id", policyID,
		"version", cp.Version,
		"active", active,
	)
	return nil
}

// ActivePolicies returns the latest active versions for a tenant and domain.
// The slice and its policies belong to an immutable snapshot; callers must
// not modify them.
func (s *Store) ActivePolicies(tenantID, domain string) []*ast.Policy {
	snap := s.snapshot.Load()
	tv, ok := snap.tenants[tenantID]
	if !ok {
		return nil
	}
	return tv.byDomain[domain]
}

// Get returns the latest version of a policy.
func (s *Store) Get(tenantID, policyID string) (*ast.Policy, error) {
	snap := s.snapshot.Load()
	tv, ok := snap.tenants[tenantID]
	if !ok {
		return nil, &NotFoundError{TenantID: tenantID, PolicyID: policyID}
	}
	p, ok := tv.latest[policyID]
	if !ok {
		return nil, &NotFoundError{TenantID: tenantID, PolicyID: policyID}
	}
	return p, nil
}

// History returns all versions of a policy, oldest first.
func (s *Store) History(tenantID, policyID string) ([]*ast.Policy, error) {
	snap := s.snapshot.Load()
	tv, ok := snap.tenants[tenantID]
	if !ok {
		return nil, &NotFoundError{TenantID: tenantID, PolicyID: policyID}
	}
	versions, ok := tv.history[policyID]
	if !ok {
		return nil, &NotFoundError{TenantID: tenantID, PolicyID: policyID}
	}
	return versions, nil
}

// Close closes the backing store.
func (s *Store) Close() error {
	return s.backend.Close()
}

// publish rebuilds one tenant's view from its updated version list and swaps
// in a new snapshot. Callers must hold s.mu.
func (s *Store) publish(tenantID string, update func([]*ast.Policy) []*ast.Policy) {
	old := s.snapshot.Load()

	var versions []*ast.Policy
	if tv, ok := old.tenants[tenantID]; ok {
		for _, hs := range tv.history {
			versions = append(versions, hs...)
		}
	}
	versions = update(versions)

	next := &snapshot{tenants: make(map[string]*tenantView, len(old.tenants)+1)}
	for t, tv := range old.tenants {
		next.tenants[t] = tv
	}
	next.tenants[tenantID] = buildTenantView(versions)
	s.snapshot.Store(next)
}

// buildTenantView indexes a flat version list into the read structures.
func buildTenantView(versions []*ast.Policy) *tenantView {
	tv := &tenantView{
		byDomain: make(map[string][]*ast.Policy),
		latest:   make(map[string]*ast.Policy),
		history:  make(map[string][]*ast.Policy),
	}

	for _, p := range versions {
		tv.history[p.ID] = append(tv.history[p.ID], p)
	}
	for id, hs := range tv.history {
		sort.Slice(hs, func(i, j int) bool { return hs[i].Version < hs[j].Version })
		tv.latest[id] = hs[len(hs)-1]
	}
	for _, p := range tv.latest {
		if p.Active {
			tv.byDomain[p.Domain] = append(tv.byDomain[p.Domain], p)
		}
	}
	for _, list := range tv.byDomain {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return tv
}

func clonePolicy(p *ast.Policy) *ast.Policy {
	cp := *p
	if p.Actions != nil {
		cp.Actions = make([]ast.Action, len(p.Actions))
		copy(cp.Actions, p.Actions)
	}
	return &cp
}
