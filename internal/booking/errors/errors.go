package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrLockHeld means the slot lock document already exists and has not
	// expired. Callers poll or give up; they never treat it as a conflict.
	ErrLockHeld = errors.New("slot lock held by another request")
)
