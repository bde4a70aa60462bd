// Package schedule converts declarative stage profiles into a target
// concurrency over time and drives virtual-user lifecycle to track it.
package schedule

import (
	"fmt"
	"math"
	"time"
)

// Mode controls how the target moves across a stage.
type Mode string

const (
	// ModeLinear ramps proportionally from the previous stage's target to
	// this stage's target over the stage duration.
	ModeLinear Mode = "linear"
	// ModeStep jumps to this stage's target at stage start and holds.
	ModeStep Mode = "step"
)

// Stage is one (duration, target concurrency) segment of a profile.
type Stage struct {
	Duration time.Duration `yaml:"duration" json:"duration"`
	Target   int           `yaml:"target" json:"target"`
	Mode     Mode          `yaml:"mode,omitempty" json:"mode,omitempty"`
}

// Profile is an ordered, non-empty list of stages plus run-level pacing.
type Profile struct {
	Name string `yaml:"name" json:"name"`

	// StartTarget is the concurrency the first linear stage ramps from.
	StartTarget int `yaml:"start_target" json:"start_target"`

	Stages []Stage `yaml:"stages" json:"stages"`

	// GracefulStop bounds how long Draining waits for in-flight iterations.
	GracefulStop time.Duration `yaml:"graceful_stop" json:"graceful_stop"`

	// Tick is the reconciliation interval. Zero means DefaultTick.
	Tick time.Duration `yaml:"tick" json:"tick"`
}

const (
	DefaultTick         = time.Second
	DefaultGracefulStop = 30 * time.Second
)

// Validate checks the profile invariants.
func (p Profile) Validate() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("schedule: profile %q needs at least one stage", p.Name)
	}
	if p.StartTarget < 0 {
		return fmt.Errorf("schedule: profile %q has negative start target", p.Name)
	}
	for i, st := range p.Stages {
		if st.Duration <= 0 {
			return fmt.Errorf("schedule: profile %q stage %d has non-positive duration", p.Name, i)
		}
		if st.Target < 0 {
			return fmt.Errorf("schedule: profile %q stage %d has negative target", p.Name, i)
		}
		if st.Mode != "" && st.Mode != ModeLinear && st.Mode != ModeStep {
			return fmt.Errorf("schedule: profile %q stage %d has unknown mode %q", p.Name, i, st.Mode)
		}
	}
	return nil
}

// TotalDuration is the sum of all stage durations.
func (p Profile) TotalDuration() time.Duration {
	var total time.Duration
	for _, st := range p.Stages {
		total += st.Duration
	}
	return total
}

// EndTarget is the last stage's declared target.
func (p Profile) EndTarget() int {
	return p.Stages[len(p.Stages)-1].Target
}

// MaxTarget is the highest target any instant of the profile can reach.
func (p Profile) MaxTarget() int {
	max := p.StartTarget
	for _, st := range p.Stages {
		if st.Target > max {
			max = st.Target
		}
	}
	return max
}

// StageIndexAt returns the stage active at the given elapsed time, or
// (len(Stages)-1, false) once the profile has ended.
func (p Profile) StageIndexAt(elapsed time.Duration) (int, bool) {
	var offset time.Duration
	for i, st := range p.Stages {
		offset += st.Duration
		if elapsed < offset {
			return i, true
		}
	}
	return len(p.Stages) - 1, false
}

// TargetAt computes the target concurrency at the given elapsed time. At and
// beyond the final stage's end time it equals the last stage's declared
// target, with no residual ramp.
func (p Profile) TargetAt(elapsed time.Duration) int {
	if elapsed < 0 {
		return p.StartTarget
	}

	prev := p.StartTarget
	var offset time.Duration
	for _, st := range p.Stages {
		end := offset + st.Duration
		if elapsed < end {
			if st.Mode == ModeStep {
				return st.Target
			}
			frac := float64(elapsed-offset) / float64(st.Duration)
			return prev + int(math.Round(frac*float64(st.Target-prev)))
		}
		prev = st.Target
		offset = end
	}
	return prev
}

// tick returns the effective reconciliation interval.
func (p Profile) tick() time.Duration {
	if p.Tick > 0 {
		return p.Tick
	}
	return DefaultTick
}

// grace returns the effective draining grace period.
func (p Profile) grace() time.Duration {
	if p.GracefulStop > 0 {
		return p.GracefulStop
	}
	return DefaultGracefulStop
}
