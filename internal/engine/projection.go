package engine

import "github.com/claude/repflow/internal/protocol"

// Protocol projections are read-only views derived from an execution state
// and its recorded history. They add no state of their own; callers use them
// to render progress without reimplementing protocol arithmetic.

// Projection returns the protocol-specific progress view for state, or nil
// when the state carries no recognizable protocol.
func Projection(state ExecutionState, history []SetProgressionData) any {
	if p, ok := DropProjection(state); ok {
		return p
	}
	if p, ok := MyoRepsProjection(state); ok {
		return p
	}
	if p, ok := PyramidalProjection(state); ok {
		return p
	}
	if p, ok := RestPauseProjection(state, history); ok {
		return p
	}
	if p, ok := MavProjection(state, history); ok {
		return p
	}
	return nil
}

// DropProgress summarizes a drop set in flight.
type DropProgress struct {
	Phase                 int     `json:"phase"`
	TotalPhases           int     `json:"total_phases"`
	DropsDone             int     `json:"drops_done"`
	DropsRemaining        int     `json:"drops_remaining"`
	CurrentDropPercent    float64 `json:"current_drop_percent"`
	TotalReductionPercent float64 `json:"total_reduction_percent"`
}

// DropProjection derives drop-set progress. ok is false for other protocols.
func DropProjection(state ExecutionState) (DropProgress, bool) {
	if state.SetType != protocol.TypeDrop || state.Config.Drop == nil {
		return DropProgress{}, false
	}
	d := state.Config.Drop

	dropsDone := state.CurrentPhase - 1
	if state.IsCompleted {
		dropsDone = len(d.DropPercentages)
	}

	p := DropProgress{
		Phase:          state.CurrentPhase,
		TotalPhases:    state.TotalPhases,
		DropsDone:      dropsDone,
		DropsRemaining: len(d.DropPercentages) - dropsDone,
	}
	if dropsDone > 0 {
		p.CurrentDropPercent = d.DropPercentages[dropsDone-1]
	}
	if state.StartWeight > 0 {
		p.TotalReductionPercent = (1 - state.CurrentSet.Weight/state.StartWeight) * 100
	}
	return p, true
}

// MyoRepsProgress summarizes a myo-reps set in flight.
type MyoRepsProgress struct {
	Stage             string `json:"stage"` // "activation" or "mini_sets"
	MiniSetsDone      int    `json:"mini_sets_done"`
	MiniSetsMax       int    `json:"mini_sets_max"`
	MiniSetsRemaining int    `json:"mini_sets_remaining"`
	TargetReps        int    `json:"target_reps"`
}

// MyoRepsProjection derives myo-reps progress. ok is false for other protocols.
func MyoRepsProjection(state ExecutionState) (MyoRepsProgress, bool) {
	if state.SetType != protocol.TypeMyoReps || state.Config.MyoReps == nil {
		return MyoRepsProgress{}, false
	}
	m := state.Config.MyoReps

	stage := "mini_sets"
	if state.CurrentPhase == 1 && !state.IsCompleted {
		stage = "activation"
	}
	return MyoRepsProgress{
		Stage:             stage,
		MiniSetsDone:      state.MiniSetsDone,
		MiniSetsMax:       m.MiniSets.Max,
		MiniSetsRemaining: m.MiniSets.Max - state.MiniSetsDone,
		TargetReps:        m.MiniSetCounts.Min,
	}, true
}

// PyramidalProgress summarizes the athlete's position on the ladder.
type PyramidalProgress struct {
	Rung  int    `json:"rung"`
	Rungs int    `json:"rungs"`
	Side  string `json:"side"` // "ascending" or "descending"
}

// PyramidalProjection derives ladder position. ok is false for other protocols.
func PyramidalProjection(state ExecutionState) (PyramidalProgress, bool) {
	if state.SetType != protocol.TypePyramidal || state.Config.Pyramidal == nil {
		return PyramidalProgress{}, false
	}
	p := state.Config.Pyramidal

	side := string(p.Direction)
	if p.Direction == protocol.PyramidBoth {
		side = "ascending"
		if state.CurrentPhase > p.Steps {
			side = "descending"
		}
	}
	return PyramidalProgress{
		Rung:  state.CurrentPhase,
		Rungs: state.TotalPhases,
		Side:  side,
	}, true
}

// RestPauseProgress summarizes a rest-pause set in flight.
type RestPauseProgress struct {
	MicroSetsDone int `json:"micro_sets_done"`
	MaxMicroSets  int `json:"max_micro_sets"`
	RepFloor      int `json:"rep_floor"`
}

// RestPauseProjection derives rest-pause progress. ok is false for other protocols.
func RestPauseProjection(state ExecutionState, history []SetProgressionData) (RestPauseProgress, bool) {
	if state.SetType != protocol.TypeRestPause || state.Config.RestPause == nil {
		return RestPauseProgress{}, false
	}
	return RestPauseProgress{
		MicroSetsDone: len(history),
		MaxMicroSets:  state.Config.RestPause.MaxMicroSets,
		RepFloor:      state.Config.RestPause.Counts.Min,
	}, true
}

// MavProgress summarizes a MAV block, including a cross-set consistency
// score: 1.0 when every recorded set hit the rep target, shrinking with the
// shortfall of each set that missed.
type MavProgress struct {
	SetsDone         int     `json:"sets_done"`
	TotalSets        int     `json:"total_sets"`
	TargetReps       int     `json:"target_reps"`
	ConsistencyScore float64 `json:"consistency_score"`
}

// MavProjection derives MAV progress. ok is false for other protocols.
func MavProjection(state ExecutionState, history []SetProgressionData) (MavProgress, bool) {
	if state.SetType != protocol.TypeMav || state.Config.Mav == nil {
		return MavProgress{}, false
	}
	m := state.Config.Mav

	p := MavProgress{
		SetsDone:         len(history),
		TotalSets:        m.Sets,
		TargetReps:       m.Counts.Max,
		ConsistencyScore: 1,
	}
	if len(history) == 0 || m.Counts.Max == 0 {
		return p, true
	}

	var sum float64
	for _, rec := range history {
		ratio := float64(rec.Reps) / float64(m.Counts.Max)
		if ratio > 1 {
			ratio = 1
		}
		sum += ratio
	}
	p.ConsistencyScore = sum / float64(len(history))
	return p, true
}
