package domain

import "errors"

// Domain errors represent pipeline failures with distinct handling rules.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBudgetExceeded indicates a cost or request ceiling would be
	// exceeded. It is a hard stop for the current file, never retried
	// automatically within the same cycle.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrFileTooLarge indicates a file exceeds the extraction size
	// ceiling. The file is rejected before any parsing.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedType indicates no extraction routine exists for a
	// media type, even after content sniffing.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrRateLimited indicates the remote API rejected a call for rate
	// reasons. Retryable with backoff.
	ErrRateLimited = errors.New("rate limited")
)
