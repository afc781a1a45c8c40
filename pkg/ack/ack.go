package ack

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Acknowledgment records that a subject (driver, operator) signed off on a
// specific policy version. Acknowledgments are immutable and unique per
// (tenant, policy, version, subject).
type Acknowledgment struct {
	TenantID      string    `json:"tenant_id"`
	PolicyID      string    `json:"policy_id"`
	PolicyVersion int       `json:"policy_version"`
	SubjectID     string    `json:"subject_id"`
	SignedAt      time.Time `json:"signed_at"`

	// SignatureRef is the hex SHA-256 of the submitted signature material.
	// The material itself is never stored.
	SignatureRef string `json:"signature_ref"`
}

// ErrNotFound is returned when no acknowledgment exists for the key.
var ErrNotFound = errors.New("ack: acknowledgment not found")

// StoreError wraps a persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ack: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store persists acknowledgments. Record is idempotent: recording the same
// key twice returns the original row unchanged, whatever the new signature
// material says.
type Store interface {
	// Record stores an acknowledgment, or returns the existing one for the
	// same (tenant, policy, version, subject).
	Record(ctx context.Context, a *Acknowledgment) (*Acknowledgment, error)

	// Get returns the acknowledgment for the key, or ErrNotFound.
	Get(ctx context.Context, tenantID, policyID string, version int, subjectID string) (*Acknowledgment, error)

	// ListBySubject returns all acknowledgments a subject has signed within
	// a tenant.
	ListBySubject(ctx context.Context, tenantID, subjectID string) ([]*Acknowledgment, error)

	// Close releases store resources.
	Close() error
}

// Tracker wraps a Store with signature hashing and the read predicate
// enforcement hooks use.
type Tracker struct {
	store Store
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Record hashes the signature material and stores the acknowledgment.
// Idempotent per (tenant, policy, version, subject).
func (t *Tracker) Record(ctx context.Context, tenantID, policyID string, version int, subjectID string, signature []byte) (*Acknowledgment, error) {
	a := &Acknowledgment{
		TenantID:      tenantID,
		PolicyID:      policyID,
		PolicyVersion: version,
		SubjectID:     subjectID,
		SignedAt:      time.Now().UTC(),
		SignatureRef:  HashContent(signature),
	}
	return t.store.Record(ctx, a)
}

// Has reports whether the subject acknowledged the given policy version.
func (t *Tracker) Has(ctx context.Context, tenantID, policyID string, version int, subjectID string) (bool, error) {
	_, err := t.store.Get(ctx, tenantID, policyID, version, subjectID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListBySubject returns all acknowledgments a subject has signed.
func (t *Tracker) ListBySubject(ctx context.Context, tenantID, subjectID string) ([]*Acknowledgment, error) {
	return t.store.ListBySubject(ctx, tenantID, subjectID)
}

// Close closes the backing store.
func (t *Tracker) Close() error {
	return t.store.Close()
}
