// Package apperr holds the sentinel errors shared by the engine and its surfaces.
package apperr

import "errors"

var (
	// ErrNotFound is the not-found signal of entity detail lookups.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks caller-input defects such as out-of-range filters.
	ErrInvalidInput = errors.New("invalid input")
)
