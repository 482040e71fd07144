package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// ErrGenerationExhausted is returned when a batch slot keeps colliding with existing codes.
	ErrGenerationExhausted = errors.New("code generation exhausted")
	// ErrStoreUnavailable wraps unexpected failures of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
)
