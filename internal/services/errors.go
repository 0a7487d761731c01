package services

import "errors"

// Sentinel errors for the collections workflow. Handlers map these to HTTP
// statuses; services wrap them with %w so errors.Is works across layers.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict signals an optimistic status guard that matched zero rows:
	// another caller changed the invoice first. Safe to re-read and retry.
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence failed")
	// ErrExternal wraps third-party sync failures; retryable, payment
	// insertion is idempotent by external reference.
	ErrExternal = errors.New("external service failed")
)
