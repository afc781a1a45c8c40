package ack

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps acknowledgments in memory. Suitable for tests and
// development.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*Acknowledgment
}

// NewMemoryStore creates an empty in-memory acknowledgment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*Acknowledgment)}
}

func ackKey(tenantID, policyID string, version int, subjectID string) string {
	return fmt.Sprintf("%s/%s/%d/%s", tenantID, policyID, version, subjectID)
}

// Record stores the acknowledgment, or returns the existing row unchanged.
func (s *MemoryStore) Record(_ context.Context, a *Acknowledgment) (*Acknowledgment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ackKey(a.TenantID, a.PolicyID, a.PolicyVersion, a.SubjectID)
	if existing, ok := s.rows[key]; ok {
		cp := *existing
		return &cp, nil
	}

	cp := *a
	s.rows[key] = &cp
	out := cp
	return &out, nil
}

// Get returns the acknowledgment for the key, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, tenantID, policyID string, version int, subjectID string) (*Acknowledgment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.rows[ackKey(tenantID, policyID, version, subjectID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// ListBySubject returns all acknowledgments a subject has signed.
func (s *MemoryStore) ListBySubject(_ context.Context, tenantID, subjectID string) ([]*Acknowledgment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Acknowledgment
	for _, a := range s.rows {
		if a.TenantID == tenantID && a.SubjectID == subjectID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
