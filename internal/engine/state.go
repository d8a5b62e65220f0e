package engine

import (
	"github.com/claude/repflow/internal/protocol"
)

// PhaseTarget prescribes one phase: the weight on the bar, the rep target,
// and an optional suggested RPE.
type PhaseTarget struct {
	Weight float64  `json:"weight"`
	Reps   int      `json:"reps"`
	RPE    *float64 `json:"rpe,omitempty"`
}

// SetProgressionData is one recorded phase outcome as reported by the
// athlete. Records are append-only and ordered.
type SetProgressionData struct {
	Weight    float64  `json:"weight"`
	Reps      int      `json:"reps"`
	RPE       *float64 `json:"rpe,omitempty"`
	Completed bool     `json:"completed"`
}

// ExecutionState is the full state of one in-flight advanced set. It embeds
// the configuration and the starting weight so that every transition is
// computable from the state alone, with no external reads.
//
// TotalPhases is a hard bound for drop, pyramidal and MAV sets. For myo-reps
// and rest-pause it is an upper bound only: IsCompleted can flip before
// CurrentPhase reaches it.
type ExecutionState struct {
	Config       protocol.SetConfiguration `json:"config"`
	SetType      protocol.SetType          `json:"set_type"`
	StartWeight  float64                   `json:"start_weight"`
	CurrentPhase int                       `json:"current_phase"`
	TotalPhases  int                       `json:"total_phases"`
	IsCompleted  bool                      `json:"is_completed"`

	// CurrentSet is the phase the athlete is performing (or, once
	// IsCompleted, the phase just recorded). NextSet previews the phase
	// after it and is nil when no further phase is prescribed.
	CurrentSet PhaseTarget  `json:"current_set"`
	NextSet    *PhaseTarget `json:"next_set,omitempty"`

	// RestPeriodSeconds is the rest prescribed after the current phase.
	// Zero or negative means no rest.
	RestPeriodSeconds int `json:"rest_period_seconds,omitempty"`

	// MiniSetsDone counts recorded myo-reps mini-sets (the activation set
	// is not a mini-set). Unused by other protocols.
	MiniSetsDone int `json:"mini_sets_done,omitempty"`
}
