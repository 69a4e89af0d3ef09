package env

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/spotsim/internal/physics"
)

// Reading is one snapshot of the robot taken from the world. Joints is
// slot-aligned with JointNames; Resolved marks slots that were read.
type Reading struct {
	Pose     physics.Pose
	Velocity physics.Velocity
	Joints   [NumJoints]physics.JointState
	Resolved [NumJoints]bool
}

// Finite reports whether the base pose and velocity are finite.
func (r Reading) Finite() bool {
	return r.Pose.Finite() && r.Velocity.Finite()
}

var down = r3.Vec{Z: -1}

// ObservationEncoder turns a Reading into the fixed 42-value layout.
type ObservationEncoder struct {
	space Space
	log   *logrus.Entry
}

func NewObservationEncoder(log *logrus.Entry) *ObservationEncoder {
	return &ObservationEncoder{space: ObservationSpace(), log: log}
}

// Encode builds the observation. Non-finite inputs are zeroed and every
// slot is clamped to its bounds, so the result is always finite and
// inside ObservationSpace.
func (e *ObservationEncoder) Encode(r Reading, prev Action, cmd Command) Observation {
	var raw [ObservationDim]float64

	g := physics.InverseRotate(r.Pose.Orientation, down)
	raw[GravitySlot], raw[GravitySlot+1], raw[GravitySlot+2] = g.X, g.Y, g.Z

	for i := 0; i < NumJoints; i++ {
		if !r.Resolved[i] {
			continue
		}
		raw[JointPosSlot+i] = r.Joints[i].Angle
		raw[JointVelSlot+i] = r.Joints[i].Velocity
	}
	for i, a := range prev {
		raw[PrevActionSlot+i] = float64(a)
	}
	for i, c := range cmd.Vector() {
		raw[CommandSlot+i] = float64(c)
	}

	var obs Observation
	bad := 0
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad++
			v = 0
		}
		obs[i] = float32(v)
	}
	if bad > 0 && e.log != nil {
		e.log.WithField("count", bad).Warn("non-finite observation values replaced with zero")
	}
	e.space.Clip(obs[:])
	return obs
}
