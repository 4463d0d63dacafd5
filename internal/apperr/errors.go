// Package apperr holds the sentinel errors that decide a run's exit status.
package apperr

import "errors"

var (
	// ErrNotFound marks a missing input: export, evidence root, allowlist or DB.
	ErrNotFound = errors.New("not found")
	// ErrMalformedRecord marks a memory export line that is not a valid record.
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidConfig   = errors.New("invalid config")
)
