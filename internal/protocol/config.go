// Package protocol defines the advanced-set protocol configurations.
// A SetConfiguration is a tagged union over the five supported protocol
// families; it is immutable after construction and validated once, before
// the execution engine ever sees it.
package protocol

import (
	"encoding/json"
	"fmt"
)

// SetType discriminates the protocol families.
type SetType string

const (
	TypeDrop      SetType = "drop"
	TypeMyoReps   SetType = "myo_reps"
	TypePyramidal SetType = "pyramidal"
	TypeRestPause SetType = "rest_pause"
	TypeMav       SetType = "mav"
)

// PyramidDirection controls the shape of a pyramidal ladder.
type PyramidDirection string

const (
	PyramidAscending  PyramidDirection = "ascending"
	PyramidDescending PyramidDirection = "descending"
	PyramidBoth       PyramidDirection = "both"
)

// IntRange is a rep-count range. Targets are ranges rather than scalars so
// phase computation can auto-regulate inside them.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether n falls inside the range (inclusive).
func (r IntRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

func (r IntRange) validate(field string) error {
	if r.Min <= 0 {
		return fmt.Errorf("%s.min must be positive, got %d", field, r.Min)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%s.max (%d) must be >= min (%d)", field, r.Max, r.Min)
	}
	return nil
}

// RPERange bounds the suggested Rate of Perceived Exertion for a phase.
type RPERange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r RPERange) validate(field string) error {
	if r.Min < 1 || r.Max > 10 || r.Max < r.Min {
		return fmt.Errorf("%s must be within 1-10 with min <= max, got [%g, %g]", field, r.Min, r.Max)
	}
	return nil
}

// DropConfig parameterizes a drop set: one top set followed by one phase per
// drop percentage, each reduction chained off the previous phase's weight.
type DropConfig struct {
	DropPercentages         []float64 `json:"drop_percentages"`
	Counts                  IntRange  `json:"counts"`
	RPE                     *RPERange `json:"rpe,omitempty"`
	RestBetweenDropsSeconds int       `json:"rest_between_drops_seconds"`
}

// MyoRepsConfig parameterizes a myo-reps set: an activation set followed by
// up to MiniSets.Max short mini-sets, continued only while the athlete keeps
// hitting MiniSetCounts.Min reps.
type MyoRepsConfig struct {
	ActivationCounts           IntRange  `json:"activation_counts"`
	MiniSets                   IntRange  `json:"mini_sets"`
	MiniSetCounts              IntRange  `json:"mini_set_counts"`
	RPE                        *RPERange `json:"rpe,omitempty"`
	RestBetweenMiniSetsSeconds int       `json:"rest_between_mini_sets_seconds"`
}

// PyramidalConfig parameterizes a pyramidal ladder. Steps counts the rungs
// on one side; direction "both" climbs up then back down sharing the apex.
type PyramidalConfig struct {
	Direction              PyramidDirection `json:"direction"`
	Steps                  int              `json:"steps"`
	WeightStepPercent      float64          `json:"weight_step_percent"`
	Counts                 IntRange         `json:"counts"`
	RPE                    *RPERange        `json:"rpe,omitempty"`
	RestBetweenSetsSeconds int              `json:"rest_between_sets_seconds"`
}

// RestPauseConfig parameterizes a rest-pause set: micro-sets at constant
// weight separated by short fixed rests, stopping after MaxMicroSets or when
// reps fall below Counts.Min.
type RestPauseConfig struct {
	Counts           IntRange  `json:"counts"`
	MaxMicroSets     int       `json:"max_micro_sets"`
	RPE              *RPERange `json:"rpe,omitempty"`
	MicroRestSeconds int       `json:"micro_rest_seconds"`
}

// MavConfig parameterizes a maximum-adaptive-volume block: Sets straight
// sets at fixed weight and rep target.
type MavConfig struct {
	Sets                   int       `json:"sets"`
	Counts                 IntRange  `json:"counts"`
	RPE                    *RPERange `json:"rpe,omitempty"`
	RestBetweenSetsSeconds int       `json:"rest_between_sets_seconds"`
}

// SetConfiguration is the tagged union. Exactly the variant named by Type is
// non-nil; Validate enforces that. The engine switches exhaustively on Type.
type SetConfiguration struct {
	Type      SetType          `json:"type"`
	Drop      *DropConfig      `json:"drop,omitempty"`
	MyoReps   *MyoRepsConfig   `json:"myo_reps,omitempty"`
	Pyramidal *PyramidalConfig `json:"pyramidal,omitempty"`
	RestPause *RestPauseConfig `json:"rest_pause,omitempty"`
	Mav       *MavConfig       `json:"mav,omitempty"`
}

// Validate checks that the configuration names a known protocol, carries
// exactly that variant, and that every field is in range.
func (c SetConfiguration) Validate() error {
	if n := c.variantCount(); n != 1 {
		return fmt.Errorf("configuration must carry exactly one protocol variant, got %d", n)
	}

	switch c.Type {
	case TypeDrop:
		if c.Drop == nil {
			return fmt.Errorf("type %q requires the drop variant", c.Type)
		}
		return c.Drop.validate()
	case TypeMyoReps:
		if c.MyoReps == nil {
			return fmt.Errorf("type %q requires the myo_reps variant", c.Type)
		}
		return c.MyoReps.validate()
	case TypePyramidal:
		if c.Pyramidal == nil {
			return fmt.Errorf("type %q requires the pyramidal variant", c.Type)
		}
		return c.Pyramidal.validate()
	case TypeRestPause:
		if c.RestPause == nil {
			return fmt.Errorf("type %q requires the rest_pause variant", c.Type)
		}
		return c.RestPause.validate()
	case TypeMav:
		if c.Mav == nil {
			return fmt.Errorf("type %q requires the mav variant", c.Type)
		}
		return c.Mav.validate()
	default:
		return fmt.Errorf("unknown set type %q", c.Type)
	}
}

func (c SetConfiguration) variantCount() int {
	n := 0
	if c.Drop != nil {
		n++
	}
	if c.MyoReps != nil {
		n++
	}
	if c.Pyramidal != nil {
		n++
	}
	if c.RestPause != nil {
		n++
	}
	if c.Mav != nil {
		n++
	}
	return n
}

func (c *DropConfig) validate() error {
	if len(c.DropPercentages) == 0 {
		return fmt.Errorf("drop_percentages must not be empty")
	}
	for i, pct := range c.DropPercentages {
		if pct <= 0 || pct >= 100 {
			return fmt.Errorf("drop_percentages[%d] must be in (0, 100), got %g", i, pct)
		}
	}
	if err := c.Counts.validate("counts"); err != nil {
		return err
	}
	if c.RPE != nil {
		return c.RPE.validate("rpe")
	}
	return nil
}

func (c *MyoRepsConfig) validate() error {
	if err := c.ActivationCounts.validate("activation_counts"); err != nil {
		return err
	}
	if err := c.MiniSets.validate("mini_sets"); err != nil {
		return err
	}
	if c.MiniSets.Min < 1 {
		return fmt.Errorf("mini_sets.min must be >= 1, got %d", c.MiniSets.Min)
	}
	if err := c.MiniSetCounts.validate("mini_set_counts"); err != nil {
		return err
	}
	if c.RPE != nil {
		return c.RPE.validate("rpe")
	}
	return nil
}

func (c *PyramidalConfig) validate() error {
	switch c.Direction {
	case PyramidAscending, PyramidDescending, PyramidBoth:
	default:
		return fmt.Errorf("direction must be ascending, descending, or both, got %q", c.Direction)
	}
	if c.Steps < 2 {
		return fmt.Errorf("steps must be >= 2, got %d", c.Steps)
	}
	if c.WeightStepPercent <= 0 || c.WeightStepPercent >= 100 {
		return fmt.Errorf("weight_step_percent must be in (0, 100), got %g", c.WeightStepPercent)
	}
	if err := c.Counts.validate("counts"); err != nil {
		return err
	}
	if c.RPE != nil {
		return c.RPE.validate("rpe")
	}
	return nil
}

func (c *RestPauseConfig) validate() error {
	if c.MaxMicroSets < 1 {
		return fmt.Errorf("max_micro_sets must be >= 1, got %d", c.MaxMicroSets)
	}
	if err := c.Counts.validate("counts"); err != nil {
		return err
	}
	if c.RPE != nil {
		return c.RPE.validate("rpe")
	}
	return nil
}

func (c *MavConfig) validate() error {
	if c.Sets < 1 {
		return fmt.Errorf("sets must be >= 1, got %d", c.Sets)
	}
	if err := c.Counts.validate("counts"); err != nil {
		return err
	}
	if c.RPE != nil {
		return c.RPE.validate("rpe")
	}
	return nil
}

// RestSeconds returns the rest prescribed between phases for the active
// variant. Zero or negative means no rest.
func (c SetConfiguration) RestSeconds() int {
	switch c.Type {
	case TypeDrop:
		if c.Drop != nil {
			return c.Drop.RestBetweenDropsSeconds
		}
	case TypeMyoReps:
		if c.MyoReps != nil {
			return c.MyoReps.RestBetweenMiniSetsSeconds
		}
	case TypePyramidal:
		if c.Pyramidal != nil {
			return c.Pyramidal.RestBetweenSetsSeconds
		}
	case TypeRestPause:
		if c.RestPause != nil {
			return c.RestPause.MicroRestSeconds
		}
	case TypeMav:
		if c.Mav != nil {
			return c.Mav.RestBetweenSetsSeconds
		}
	}
	return 0
}

// Encode serializes the configuration to its stored JSON form.
func (c SetConfiguration) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding set configuration: %w", err)
	}
	return string(data), nil
}

// Decode parses a stored configuration string and validates it.
func Decode(raw string) (SetConfiguration, error) {
	var c SetConfiguration
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return SetConfiguration{}, fmt.Errorf("decoding set configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return SetConfiguration{}, err
	}
	return c, nil
}
