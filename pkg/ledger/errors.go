package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist within the caller's
// tenant scope.
var ErrNotFound = errors.New("ledger: record not found")

// ErrConcurrentModification is returned when a compare-and-swap update loses
// a race. The record changed between read and write; callers should re-read
// and retry if the operation still applies.
var ErrConcurrentModification = errors.New("ledger: concurrent modification")

// InvalidTransitionError is returned when a requested status change is not
// on a legal lifecycle path.
type InvalidTransitionError struct {
	ViolationID string
	From        ViolationStatus
	To          ViolationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("ledger: invalid transition %s -> %s for violation %s", e.From, e.To, e.ViolationID)
}

// StorageError wraps a backend failure. A storage error on the write path is
// fatal to the request: evaluation results that cannot be persisted are not
// reported as successful.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
