package env

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/spotsim/internal/physics"
)

func nanf() float64 { return math.NaN() }

func uprightReading(h float64) Reading {
	r := Reading{Pose: physics.SpawnPose(h)}
	for i := range r.Resolved {
		r.Resolved[i] = true
	}
	return r
}

func TestEncodeUpright(t *testing.T) {
	enc := NewObservationEncoder(nil)
	r := uprightReading(0.3)
	r.Joints[5] = physics.JointState{Angle: 0.7, Velocity: -2}
	prev := Action{1: 0.25}
	obs := enc.Encode(r, prev, Command{VX: 0.5, VY: -0.2, Yaw: 0.1})

	g := obs.Gravity()
	assert.InDeltaSlice(t, []float32{0, 0, -1}, g[:], 1e-6)
	assert.Equal(t, float32(0.7), obs[JointPosSlot+5])
	assert.Equal(t, float32(-2), obs[JointVelSlot+5])
	assert.Equal(t, float32(0.25), obs[PrevActionSlot+1])
	assert.Equal(t, Command{VX: 0.5, VY: -0.2, Yaw: 0.1}, obs.Command())
}

func TestEncodeGravityFollowsRoll(t *testing.T) {
	enc := NewObservationEncoder(nil)
	r := uprightReading(0.3)
	r.Pose.Orientation = physics.QuaternionFromEuler(0.4, 0, 0)
	obs := enc.Encode(r, Action{}, Command{})
	g := obs.Gravity()
	assert.InDelta(t, 0, g[0], 1e-6)
	assert.InDelta(t, -math.Sin(0.4), g[1], 1e-6)
	assert.InDelta(t, -math.Cos(0.4), g[2], 1e-6)
}

func TestEncodeUnresolvedSlotsReadZero(t *testing.T) {
	enc := NewObservationEncoder(nil)
	r := uprightReading(0.3)
	r.Joints[2] = physics.JointState{Angle: 1, Velocity: 1}
	r.Resolved[2] = false
	obs := enc.Encode(r, Action{}, Command{})
	assert.Equal(t, float32(0), obs[JointPosSlot+2])
	assert.Equal(t, float32(0), obs[JointVelSlot+2])
}

func TestEncodeAlwaysFiniteAndBounded(t *testing.T) {
	enc := NewObservationEncoder(nil)
	space := ObservationSpace()

	cases := []struct {
		name string
		r    Reading
		prev Action
		cmd  Command
	}{
		{"nan pose", Reading{Pose: physics.Pose{Position: r3.Vec{Z: nanf()}}}, Action{}, Command{}},
		{"nan joints", func() Reading {
			r := uprightReading(0.3)
			r.Joints[0] = physics.JointState{Angle: nanf(), Velocity: math.Inf(1)}
			return r
		}(), Action{}, Command{}},
		{"huge velocity", func() Reading {
			r := uprightReading(0.3)
			r.Joints[11].Velocity = 1e9
			r.Joints[10].Angle = -40
			return r
		}(), Action{}, Command{}},
		{"bad prev and command", uprightReading(0.3),
			Action{0: float32(math.Inf(-1)), 1: float32(nanf()), 2: 9},
			Command{VX: 4, VY: float32(nanf()), Yaw: -3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := enc.Encode(tc.r, tc.prev, tc.cmd)
			assert.Len(t, obs, ObservationDim)
			for i, v := range obs {
				assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0), "slot %d", i)
			}
			assert.True(t, space.Contains(obs[:]))
		})
	}
}

func TestEncodeClampsJointVelocity(t *testing.T) {
	enc := NewObservationEncoder(nil)
	r := uprightReading(0.3)
	r.Joints[11].Velocity = 120
	obs := enc.Encode(r, Action{}, Command{})
	assert.Equal(t, float32(50), obs[JointVelSlot+11])
}
