// Package common defines shared constants and sentinel errors used across
// the course cache layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStructuralInconsistency marks a record that references content
	// missing from the current tree, e.g. a submission to a deleted exercise.
	// It is recovered locally and never reaches the end user.
	ErrStructuralInconsistency = errors.New("structural inconsistency")

	// ErrGeneratorFailure wraps failures of a cache generator. The entry is
	// left invalidated so the next caller retries.
	ErrGeneratorFailure = errors.New("cache generation failed")

	// Transaction errors.
	ErrNotInTransaction = errors.New("not in transaction")
	ErrScopeClosed      = errors.New("scope already closed")
)
