package engine

import "github.com/claude/repflow/internal/protocol"

// A drop set is one top set followed by one phase per configured drop
// percentage. Each reduction chains off the previous phase's resulting
// weight, not the original top weight: 100 kg with drops [20, 40] yields
// 100 -> 80 -> 48, not 100 -> 80 -> 40.

func initializeDrop(cfg protocol.SetConfiguration, start float64) ExecutionState {
	d := cfg.Drop
	state := ExecutionState{
		Config:       cfg,
		SetType:      cfg.Type,
		StartWeight:  start,
		CurrentPhase: 1,
		TotalPhases:  1 + len(d.DropPercentages),
		CurrentSet: PhaseTarget{
			Weight: start,
			Reps:   d.Counts.Max,
			RPE:    rpeTarget(d.RPE),
		},
		RestPeriodSeconds: restAfterPhase(d.RestBetweenDropsSeconds),
	}
	state.NextSet = dropPreview(d, state.CurrentSet.Weight, state.CurrentPhase)
	return state
}

func progressDrop(state ExecutionState) ExecutionState {
	if state.CurrentPhase >= state.TotalPhases {
		return complete(state)
	}

	d := state.Config.Drop
	next := state
	next.CurrentPhase = state.CurrentPhase + 1
	next.CurrentSet = PhaseTarget{
		Weight: droppedWeight(state.CurrentSet.Weight, d.DropPercentages[state.CurrentPhase-1]),
		Reps:   d.Counts.Min,
		RPE:    rpeTarget(d.RPE),
	}
	next.NextSet = dropPreview(d, next.CurrentSet.Weight, next.CurrentPhase)
	next.RestPeriodSeconds = restAfterPhase(d.RestBetweenDropsSeconds)
	return next
}

// dropPreview computes the phase after `phase`, or nil if none remains.
// The drop applied between phase k and k+1 is DropPercentages[k-1].
func dropPreview(d *protocol.DropConfig, currentWeight float64, phase int) *PhaseTarget {
	if phase >= 1+len(d.DropPercentages) {
		return nil
	}
	return &PhaseTarget{
		Weight: droppedWeight(currentWeight, d.DropPercentages[phase-1]),
		Reps:   d.Counts.Min,
		RPE:    rpeTarget(d.RPE),
	}
}

func droppedWeight(weight, dropPercent float64) float64 {
	return roundWeight(weight * (1 - dropPercent/100))
}
