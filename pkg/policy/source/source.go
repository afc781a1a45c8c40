package source

import (
	"bytes"
	"context"
	"encoding/json"

	"fleetgrid/warden/pkg/policy/ast"
	"fleetgrid/warden/pkg/policy/store"
)

// Source loads policy definitions from somewhere outside the store,
// typically a directory of YAML files maintained by an external authoring
// pipeline.
type Source interface {
	LoadPolicies(ctx context.Context) ([]*ast.Policy, error)
}

// MemorySource serves a fixed policy list. Used in tests and embedded
// setups.
type MemorySource struct {
	policies []*ast.Policy
}

// NewMemorySource creates a source over the given policies.
func NewMemorySource(policies ...*ast.Policy) *MemorySource {
	return &MemorySource{policies: policies}
}

// LoadPolicies returns the configured policies.
func (s *MemorySource) LoadPolicies(_ context.Context) ([]*ast.Policy, error) {
	return s.policies, nil
}

// Sync loads policies from the source and lands the changed ones in the
// store as new versions. Unchanged policies are skipped so repeated reloads
// do not inflate version history. Returns the number of versions written.
func Sync(ctx context.Context, src Source, st *store.Store) (int, error) {
	policies, err := src.LoadPolicies(ctx)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, p := range policies {
		if prev, err := st.Get(p.TenantID, p.ID); err == nil && samePolicy(prev, p) {
			if prev.Active != p.Active {
				if err := st.SetActive(ctx, p.TenantID, p.ID, p.Active); err != nil {
					return written, err
				}
				written++
			}
			continue
		}
		if _, err := st.Put(ctx, p); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// samePolicy compares the authored content of two policies, ignoring
// version bookkeeping and the active flag.
func samePolicy(a, b *ast.Policy) bool {
	if a.Name != b.Name || a.Domain != b.Domain ||
		a.Mode != b.Mode || a.Polarity != b.Polarity || a.Severity != b.Severity {
		return false
	}
	ac, _ := json.Marshal(a.Conditions)
	bc, _ := json.Marshal(b.Conditions)
	if !bytes.Equal(ac, bc) {
		return false
	}
	aa, _ := json.Marshal(a.Actions)
	ba, _ := json.Marshal(b.Actions)
	return bytes.Equal(aa, ba)
}
