package store

import (
	"context"

	"fleetgrid/warden/pkg/policy/ast"
)

// Backend persists policy versions. Versions are append-only; the single
// mutable bit is the active flag on a stored version.
type Backend interface {
	// SaveVersion appends one policy version. Saving an existing
	// (tenant, id, version) is an error.
	SaveVersion(ctx context.Context, p *ast.Policy) error

	// SetActive flips the active flag on one stored version.
	SetActive(ctx context.Context, tenantID, policyID string, version int, active bool) error

	// LoadAll returns every stored version across all tenants. Called once
	// at startup to hydrate the snapshot.
	LoadAll(ctx context.Context) ([]*ast.Policy, error)

	// Close releases backend resources.
	Close() error
}
