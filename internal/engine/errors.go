package engine

import "errors"

// Engine failures are deterministic: retrying the same call with the same
// inputs reproduces the same error, so callers surface these instead of
// retrying.
var (
	// ErrInvalidConfiguration marks a malformed or out-of-range
	// SetConfiguration rejected by Initialize.
	ErrInvalidConfiguration = errors.New("invalid set configuration")

	// ErrIllegalTransition marks a progression attempted on a completed or
	// otherwise unusable state.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrValidationFailed marks proposed phase data that fails protocol
	// policy (non-positive rep count, RPE off the 1-10 scale).
	ErrValidationFailed = errors.New("phase data validation failed")
)
