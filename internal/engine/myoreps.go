package engine

import "github.com/claude/repflow/internal/protocol"

// Myo-reps: one activation set, then short mini-sets at the same weight.
// The activation set always advances into the first mini-set; from there the
// set continues only while the athlete keeps hitting the mini-set rep floor
// and the configured mini-set cap has not been reached. TotalPhases is an
// upper bound, not a promise — completion usually lands earlier.

func initializeMyoReps(cfg protocol.SetConfiguration, start float64) ExecutionState {
	m := cfg.MyoReps
	state := ExecutionState{
		Config:       cfg,
		SetType:      cfg.Type,
		StartWeight:  start,
		CurrentPhase: 1,
		TotalPhases:  1 + m.MiniSets.Max,
		CurrentSet: PhaseTarget{
			Weight: start,
			Reps:   m.ActivationCounts.Max,
			RPE:    rpeTarget(m.RPE),
		},
		NextSet:           miniSetTarget(m, start),
		RestPeriodSeconds: restAfterPhase(m.RestBetweenMiniSetsSeconds),
	}
	return state
}

func progressMyoReps(state ExecutionState, completed SetProgressionData) ExecutionState {
	m := state.Config.MyoReps

	// Activation set: advance unconditionally into the first mini-set.
	if state.CurrentPhase == 1 {
		next := state
		next.CurrentPhase = 2
		next.MiniSetsDone = 0
		next.CurrentSet = *miniSetTarget(m, state.StartWeight)
		next.NextSet = miniSetPreview(m, state.StartWeight, 1)
		next.RestPeriodSeconds = restAfterPhase(m.RestBetweenMiniSetsSeconds)
		return next
	}

	done := state.MiniSetsDone + 1
	if !ShouldContinueMiniSets(completed.Reps, m.MiniSetCounts.Min, done, m.MiniSets.Max) {
		terminal := complete(state)
		terminal.MiniSetsDone = done
		return terminal
	}

	next := state
	next.CurrentPhase = state.CurrentPhase + 1
	next.MiniSetsDone = done
	next.CurrentSet = *miniSetTarget(m, state.StartWeight)
	next.NextSet = miniSetPreview(m, state.StartWeight, done+1)
	next.RestPeriodSeconds = restAfterPhase(m.RestBetweenMiniSetsSeconds)
	return next
}

// ShouldContinueMiniSets is the myo-reps continuation rule: keep going only
// while the recorded reps hold the mini-set floor AND more mini-sets are
// allowed. At the boundary miniSetsDone == maxMiniSets the answer is false
// even when reps hit the target.
func ShouldContinueMiniSets(reps, targetReps, miniSetsDone, maxMiniSets int) bool {
	return reps >= targetReps && miniSetsDone < maxMiniSets
}

func miniSetTarget(m *protocol.MyoRepsConfig, weight float64) *PhaseTarget {
	return &PhaseTarget{
		Weight: weight,
		Reps:   m.MiniSetCounts.Min,
		RPE:    rpeTarget(m.RPE),
	}
}

// miniSetPreview previews the mini-set after the one currently being
// performed, or nil when the cap leaves no room for another.
func miniSetPreview(m *protocol.MyoRepsConfig, weight float64, performing int) *PhaseTarget {
	if performing >= m.MiniSets.Max {
		return nil
	}
	return miniSetTarget(m, weight)
}
