package env

import (
	"math"

	"github.com/san-kum/spotsim/internal/physics"
)

// Status is the outcome of an episode after a step.
type Status int

const (
	Running Status = iota
	TerminatedDiverged
	TerminatedFallen
	TerminatedTipped
	Truncated
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case TerminatedDiverged:
		return "diverged"
	case TerminatedFallen:
		return "fallen"
	case TerminatedTipped:
		return "tipped"
	case Truncated:
		return "truncated"
	}
	return "unknown"
}

// Terminated reports a failure state of the robot.
func (s Status) Terminated() bool {
	return s == TerminatedDiverged || s == TerminatedFallen || s == TerminatedTipped
}

// Truncated reports that the episode hit its step limit.
func (s Status) Truncated() bool { return s == Truncated }

func (s Status) Done() bool { return s != Running }

// ParseStatus is the inverse of String.
func ParseStatus(name string) (Status, bool) {
	for s := Running; s <= Truncated; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return Running, false
}

// EpisodeLimits are the termination thresholds.
type EpisodeLimits struct {
	FallHeight float64 `yaml:"fall_height"`
	TipAngle   float64 `yaml:"tip_angle"`
	MaxSteps   int     `yaml:"max_steps"`
}

func DefaultEpisodeLimits() EpisodeLimits {
	return EpisodeLimits{FallHeight: 0.1, TipAngle: math.Pi / 3, MaxSteps: 1000}
}

// EpisodeController classifies post-step states.
type EpisodeController struct {
	Limits EpisodeLimits
}

// Evaluate checks, in order: a non-finite pose, a fall, a tip-over and
// the step limit.
func (c EpisodeController) Evaluate(pose physics.Pose, step int) Status {
	if !pose.Finite() {
		return TerminatedDiverged
	}
	if pose.Position.Z < c.Limits.FallHeight {
		return TerminatedFallen
	}
	roll, pitch, _ := physics.EulerFromQuaternion(pose.Orientation)
	if math.Abs(roll) > c.Limits.TipAngle || math.Abs(pitch) > c.Limits.TipAngle {
		return TerminatedTipped
	}
	if step >= c.Limits.MaxSteps {
		return Truncated
	}
	return Running
}
