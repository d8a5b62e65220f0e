// Package engine implements the pure phase-transition algorithms for
// advanced resistance-training set protocols. Every operation is
// value-in/value-out: validation, phase computation and completion rules
// read nothing beyond their arguments and have no side effects. Persistence
// and timers live with the orchestrator.
package engine

import (
	"fmt"
	"math"

	"github.com/claude/repflow/internal/protocol"
)

// DefaultStartWeightKg is used when no carried-over weight is supplied
// (an empty 20 kg barbell).
const DefaultStartWeightKg = 20.0

// DefaultRestSeconds is the fallback rest period when a state prescribes none.
const DefaultRestSeconds = 60

// Initialize validates cfg and computes phase 1. lastKnownWeight carries the
// athlete's previous working weight for the exercise; pass nil to fall back
// to DefaultStartWeightKg.
func Initialize(cfg protocol.SetConfiguration, lastKnownWeight *float64) (ExecutionState, error) {
	if err := cfg.Validate(); err != nil {
		return ExecutionState{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	start := DefaultStartWeightKg
	if lastKnownWeight != nil && *lastKnownWeight > 0 {
		start = *lastKnownWeight
	}

	switch cfg.Type {
	case protocol.TypeDrop:
		return initializeDrop(cfg, start), nil
	case protocol.TypeMyoReps:
		return initializeMyoReps(cfg, start), nil
	case protocol.TypePyramidal:
		return initializePyramidal(cfg, start), nil
	case protocol.TypeRestPause:
		return initializeRestPause(cfg, start), nil
	case protocol.TypeMav:
		return initializeMav(cfg, start), nil
	default:
		return ExecutionState{}, fmt.Errorf("%w: unknown set type %q", ErrInvalidConfiguration, cfg.Type)
	}
}

// Progress consumes one recorded phase outcome and computes the next state:
// either the following phase's targets or a completed terminal state.
// CurrentPhase never decreases across successive calls, and IsCompleted
// flips false to true exactly once.
func Progress(state ExecutionState, completed SetProgressionData) (ExecutionState, error) {
	if state.IsCompleted {
		return ExecutionState{}, fmt.Errorf("%w: set already completed", ErrIllegalTransition)
	}
	if state.CurrentPhase < 1 {
		return ExecutionState{}, fmt.Errorf("%w: uninitialized state", ErrIllegalTransition)
	}

	switch state.SetType {
	case protocol.TypeDrop:
		return progressDrop(state), nil
	case protocol.TypeMyoReps:
		return progressMyoReps(state, completed), nil
	case protocol.TypePyramidal:
		return progressPyramidal(state), nil
	case protocol.TypeRestPause:
		return progressRestPause(state, completed), nil
	case protocol.TypeMav:
		return progressMav(state), nil
	default:
		return ExecutionState{}, fmt.Errorf("%w: unknown set type %q", ErrIllegalTransition, state.SetType)
	}
}

// ValidateCompletion checks proposed phase data against protocol policy
// without mutating anything. It is the pre-flight counterpart of Progress.
func ValidateCompletion(state ExecutionState, proposed SetProgressionData) error {
	if state.IsCompleted {
		return fmt.Errorf("%w: set already completed", ErrIllegalTransition)
	}
	if proposed.Reps <= 0 {
		return fmt.Errorf("%w: rep count must be positive, got %d", ErrValidationFailed, proposed.Reps)
	}
	if proposed.Weight < 0 {
		return fmt.Errorf("%w: weight must not be negative, got %g", ErrValidationFailed, proposed.Weight)
	}
	if proposed.RPE != nil && (*proposed.RPE < 1 || *proposed.RPE > 10) {
		return fmt.Errorf("%w: RPE must be within 1-10, got %g", ErrValidationFailed, *proposed.RPE)
	}
	return nil
}

// SuggestedRestPeriod returns the rest prescribed after the current phase,
// falling back to DefaultRestSeconds when the state prescribes none.
func SuggestedRestPeriod(state ExecutionState) int {
	if state.RestPeriodSeconds > 0 {
		return state.RestPeriodSeconds
	}
	return DefaultRestSeconds
}

// complete returns state as a terminal copy: the phase counter stays where
// it is, the preview disappears, and no further rest is prescribed.
func complete(state ExecutionState) ExecutionState {
	state.IsCompleted = true
	state.NextSet = nil
	state.RestPeriodSeconds = 0
	return state
}

// rpeTarget picks the suggested RPE from a configured range, aiming at the
// top of it.
func rpeTarget(r *protocol.RPERange) *float64 {
	if r == nil {
		return nil
	}
	v := r.Max
	return &v
}

// roundWeight normalizes a derived weight to two decimals so percentage
// arithmetic lands on loadable numbers instead of float dust.
func roundWeight(w float64) float64 {
	return math.Round(w*100) / 100
}

// restAfterPhase normalizes a configured rest: zero or negative means none.
func restAfterPhase(seconds int) int {
	if seconds < 0 {
		return 0
	}
	return seconds
}
