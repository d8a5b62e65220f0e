package engine

import "github.com/claude/repflow/internal/protocol"

// Rest-pause: micro-sets at constant weight separated by short fixed rests.
// The set stops after the configured micro-set cap, or early as soon as a
// recorded micro-set falls below the rep floor.

func initializeRestPause(cfg protocol.SetConfiguration, start float64) ExecutionState {
	r := cfg.RestPause
	state := ExecutionState{
		Config:       cfg,
		SetType:      cfg.Type,
		StartWeight:  start,
		CurrentPhase: 1,
		TotalPhases:  r.MaxMicroSets,
		CurrentSet: PhaseTarget{
			Weight: start,
			Reps:   r.Counts.Max,
			RPE:    rpeTarget(r.RPE),
		},
		RestPeriodSeconds: restAfterPhase(r.MicroRestSeconds),
	}
	state.NextSet = restPausePreview(r, start, state.CurrentPhase)
	return state
}

func progressRestPause(state ExecutionState, completed SetProgressionData) ExecutionState {
	r := state.Config.RestPause

	// Falling below the floor ends the set regardless of remaining budget.
	if completed.Reps < r.Counts.Min {
		return complete(state)
	}
	if state.CurrentPhase >= state.TotalPhases {
		return complete(state)
	}

	next := state
	next.CurrentPhase = state.CurrentPhase + 1
	next.CurrentSet = PhaseTarget{
		Weight: state.StartWeight,
		Reps:   r.Counts.Min,
		RPE:    rpeTarget(r.RPE),
	}
	next.NextSet = restPausePreview(r, state.StartWeight, next.CurrentPhase)
	next.RestPeriodSeconds = restAfterPhase(r.MicroRestSeconds)
	return next
}

func restPausePreview(r *protocol.RestPauseConfig, weight float64, phase int) *PhaseTarget {
	if phase >= r.MaxMicroSets {
		return nil
	}
	return &PhaseTarget{
		Weight: weight,
		Reps:   r.Counts.Min,
		RPE:    rpeTarget(r.RPE),
	}
}
