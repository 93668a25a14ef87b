package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
// It is a normal outcome of a lazy load, not a failure.
var ErrSessionNotFound = errors.New("session not found")

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrInvalidState is returned when a deleted session is used again.
var ErrInvalidState = errors.New("invalid session state")

// ErrWriteConflict is returned when a stale write is rejected by the store.
var ErrWriteConflict = errors.New("session write conflict")

// Unavailable marks err as an ErrStoreUnavailable while keeping the cause.
// It returns nil if err is nil.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
