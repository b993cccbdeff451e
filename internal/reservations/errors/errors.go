package errors

import "errors"

var (
	ErrNotFound      = errors.New("reservation not found")
	ErrInvalidID     = errors.New("invalid ID format")
	ErrStateMismatch = errors.New("reservation status changed concurrently")
	ErrLockHeld      = errors.New("space lock already held")
)
