package engine

import (
	"math"

	"github.com/claude/repflow/internal/protocol"
)

// Pyramidal sets follow a ladder precomputed from the configuration and the
// starting weight: ascending adds weight and sheds reps rung by rung,
// descending mirrors that, and "both" climbs up then back down sharing the
// apex. The phase count is fixed by the ladder length.

func initializePyramidal(cfg protocol.SetConfiguration, start float64) ExecutionState {
	ladder := buildLadder(cfg.Pyramidal, start)
	state := ExecutionState{
		Config:            cfg,
		SetType:           cfg.Type,
		StartWeight:       start,
		CurrentPhase:      1,
		TotalPhases:       len(ladder),
		CurrentSet:        ladder[0],
		RestPeriodSeconds: restAfterPhase(cfg.Pyramidal.RestBetweenSetsSeconds),
	}
	if len(ladder) > 1 {
		next := ladder[1]
		state.NextSet = &next
	}
	return state
}

func progressPyramidal(state ExecutionState) ExecutionState {
	if state.CurrentPhase >= state.TotalPhases {
		return complete(state)
	}

	ladder := buildLadder(state.Config.Pyramidal, state.StartWeight)
	next := state
	next.CurrentPhase = state.CurrentPhase + 1
	next.CurrentSet = ladder[next.CurrentPhase-1]
	next.NextSet = nil
	if next.CurrentPhase < len(ladder) {
		preview := ladder[next.CurrentPhase]
		next.NextSet = &preview
	}
	next.RestPeriodSeconds = restAfterPhase(state.Config.Pyramidal.RestBetweenSetsSeconds)
	return next
}

// buildLadder derives the full sequence of phase targets. The starting
// weight anchors the first rung: the lightest rung for an ascending ladder,
// the heaviest for a descending one.
func buildLadder(p *protocol.PyramidalConfig, start float64) []PhaseTarget {
	up := make([]PhaseTarget, p.Steps)
	for i := 0; i < p.Steps; i++ {
		up[i] = PhaseTarget{
			Weight: roundWeight(start * (1 + float64(i)*p.WeightStepPercent/100)),
			Reps:   ladderReps(p.Counts, i, p.Steps),
			RPE:    rpeTarget(p.RPE),
		}
	}

	switch p.Direction {
	case protocol.PyramidAscending:
		return up
	case protocol.PyramidDescending:
		down := make([]PhaseTarget, p.Steps)
		for i := 0; i < p.Steps; i++ {
			down[i] = PhaseTarget{
				Weight: roundWeight(start * (1 - float64(i)*p.WeightStepPercent/100)),
				Reps:   ladderReps(p.Counts, p.Steps-1-i, p.Steps),
				RPE:    rpeTarget(p.RPE),
			}
		}
		return down
	default: // both: up to the apex, then back down its mirror
		ladder := make([]PhaseTarget, 0, 2*p.Steps-1)
		ladder = append(ladder, up...)
		for i := p.Steps - 2; i >= 0; i-- {
			ladder = append(ladder, up[i])
		}
		return ladder
	}
}

// ladderReps slides the rep target from Counts.Max at the lightest rung to
// Counts.Min at the heaviest.
func ladderReps(counts protocol.IntRange, rung, steps int) int {
	if steps <= 1 {
		return counts.Max
	}
	span := float64(counts.Max - counts.Min)
	return counts.Max - int(math.Round(span*float64(rung)/float64(steps-1)))
}
