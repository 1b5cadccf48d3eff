package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource in the source of truth or the index.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrSearchUnavailable signals that the index store cannot serve queries.
	// It is never a zero-result answer.
	ErrSearchUnavailable = errors.New("search unavailable")
	// ErrLockNotAcquired signals that a unit lock stayed busy past the lock timeout.
	ErrLockNotAcquired = errors.New("indexing lock not acquired")
	// ErrRebuildInProgress signals that another full rebuild holds the rebuild lock.
	ErrRebuildInProgress = errors.New("rebuild already in progress")
	// ErrLeaseLost signals that a rebuild lost its lock or building marker mid-run.
	ErrLeaseLost = errors.New("rebuild lease lost")
	// ErrUnknownEvent signals an event type without a registered handler.
	ErrUnknownEvent = errors.New("unknown event type")
	// ErrInvalidEvent signals an event whose payload misses required identifiers.
	ErrInvalidEvent = errors.New("invalid event")
)

// LockBusyError wraps ErrLockNotAcquired with the contended unit.
type LockBusyError struct {
	UnitID string
}

func (e *LockBusyError) Error() string {
	return fmt.Sprintf("%s: unit %s", ErrLockNotAcquired.Error(), e.UnitID)
}

func (e *LockBusyError) Unwrap() error { return ErrLockNotAcquired }

// NewLockBusy creates a lock contention error for the given unit.
func NewLockBusy(unitID string) error {
	return &LockBusyError{UnitID: unitID}
}
