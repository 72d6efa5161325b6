package domain

import "errors"

// Caller-recoverable failures. Callers match them with errors.Is; anything
// else returned by the registry is a store failure.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("service not found")
	ErrConflict     = errors.New("service already registered")
)
