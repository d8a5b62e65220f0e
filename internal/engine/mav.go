package engine

import "github.com/claude/repflow/internal/protocol"

// MAV (maximum adaptive volume): a fixed weight and rep target repeated a
// fixed number of straight sets. Completion is strict — exactly when the
// final set is recorded.

func initializeMav(cfg protocol.SetConfiguration, start float64) ExecutionState {
	m := cfg.Mav
	state := ExecutionState{
		Config:       cfg,
		SetType:      cfg.Type,
		StartWeight:  start,
		CurrentPhase: 1,
		TotalPhases:  m.Sets,
		CurrentSet: PhaseTarget{
			Weight: start,
			Reps:   m.Counts.Max,
			RPE:    rpeTarget(m.RPE),
		},
		RestPeriodSeconds: restAfterPhase(m.RestBetweenSetsSeconds),
	}
	state.NextSet = mavPreview(m, start, state.CurrentPhase)
	return state
}

func progressMav(state ExecutionState) ExecutionState {
	if state.CurrentPhase >= state.TotalPhases {
		return complete(state)
	}

	m := state.Config.Mav
	next := state
	next.CurrentPhase = state.CurrentPhase + 1
	next.CurrentSet = PhaseTarget{
		Weight: state.StartWeight,
		Reps:   m.Counts.Max,
		RPE:    rpeTarget(m.RPE),
	}
	next.NextSet = mavPreview(m, state.StartWeight, next.CurrentPhase)
	next.RestPeriodSeconds = restAfterPhase(m.RestBetweenSetsSeconds)
	return next
}

func mavPreview(m *protocol.MavConfig, weight float64, phase int) *PhaseTarget {
	if phase >= m.Sets {
		return nil
	}
	return &PhaseTarget{
		Weight: weight,
		Reps:   m.Counts.Max,
		RPE:    rpeTarget(m.RPE),
	}
}
