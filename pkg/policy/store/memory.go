package store

import (
	"context"
	"fmt"
	"sync"

	"fleetgrid/warden/pkg/policy/ast"
)

// MemoryBackend keeps policy versions in memory. Suitable for tests and
// development.
type MemoryBackend struct {
	mu       sync.Mutex
	versions map[string]*ast.Policy // key: tenant/id/version
	order    []string
}

// NewMemoryBackend creates an empty in-memory policy backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{versions: make(map[string]*ast.Policy)}
}

func versionKey(tenantID, policyID string, version int) string {
	return fmt.Sprintf("%s/%s/%d", tenantID, policyID, version)
}

// SaveVersion appends one policy version.
func (b *MemoryBackend) SaveVersion(_ context.Context, p *ast.Policy) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := versionKey(p.TenantID, p.ID, p.Version)
	if _, ok := b.versions[key]; ok {
		return &BackendError{Op: "save_version", Err: fmt.Errorf("version %d of policy %s already exists", p.Version, p.ID)}
	}
	cp := *p
	b.versions[key] = &cp
	b.order = append(b.order, key)
	return nil
}

// SetActive flips the active flag on one stored version.
func (b *MemoryBackend) SetActive(_ context.Context, tenantID, policyID string, version int, active bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.versions[versionKey(tenantID, policyID, version)]
	if !ok {
		return &NotFoundError{TenantID: tenantID, PolicyID: policyID}
	}
	p.Active = active
	return nil
}

// LoadAll returns every stored version in insertion order.
func (b *MemoryBackend) LoadAll(_ context.Context) ([]*ast.Policy, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*ast.Policy, 0, len(b.order))
	for _, key := range b.order {
		cp := *b.versions[key]
		out = append(out, &cp)
	}
	return out, nil
}

// Close is a no-op for the memory backend.
func (b *MemoryBackend) Close() error {
	return nil
}
