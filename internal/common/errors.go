// Package common defines sentinel errors shared by the storage, service and
// transport layers of pagetree. Callers should use errors.Is to match them.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStorageUnavailable wraps any failure of the backing store.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Write-path errors.
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrCycleDetected = errors.New("cycle detected")
	ErrHasChildren   = errors.New("node has children")

	// Version errors.
	ErrNoLiveVersion = errors.New("no live version")

	// Capability errors, returned only by operations gated on a decision.
	ErrNotEditable = errors.New("not editable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
