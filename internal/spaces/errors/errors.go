package errors

import "errors"

var (
	ErrNotFound      = errors.New("space not found")
	ErrInvalidID     = errors.New("invalid ID format")
	ErrStateMismatch = errors.New("space status changed concurrently")
)
