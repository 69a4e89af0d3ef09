package env

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/spotsim/internal/physics"
)

func TestRewardStandingStill(t *testing.T) {
	s := NewRewardShaper(DefaultRewardConfig())
	terms := s.Reward(physics.SpawnPose(0.3), physics.Velocity{}, Command{}, Action{})

	assert.Equal(t, 1.0, terms.Alive)
	assert.Equal(t, 0.0, terms.Velocity)
	assert.Equal(t, 0.0, terms.Orientation)
	assert.Equal(t, 0.0, terms.Energy)
	assert.Equal(t, 0.5, terms.HeightBand)
	assert.InDelta(t, 1.25, terms.Total(), 1e-12)
}

func TestRewardTerms(t *testing.T) {
	s := NewRewardShaper(DefaultRewardConfig())

	tests := []struct {
		name  string
		pose  physics.Pose
		vel   physics.Velocity
		cmd   Command
		prev  Action
		check func(t *testing.T, r RewardTerms)
	}{
		{
			name: "tracks half the commanded speed",
			pose: physics.SpawnPose(0.3),
			vel:  physics.Velocity{Linear: r3.Vec{X: 0.5}},
			cmd:  Command{VX: 1},
			check: func(t *testing.T, r RewardTerms) {
				assert.InDelta(t, 0, r.Velocity, 1e-9)
			},
		},
		{
			name: "velocity error",
			pose: physics.SpawnPose(0.3),
			vel:  physics.Velocity{Linear: r3.Vec{X: -0.2}},
			cmd:  Command{VX: 0.4},
			check: func(t *testing.T, r RewardTerms) {
				assert.InDelta(t, -0.4, r.Velocity, 1e-6)
			},
		},
		{
			name: "tilt penalty",
			pose: physics.Pose{Position: r3.Vec{Z: 0.3}, Orientation: physics.QuaternionFromEuler(0.1, -0.2, 0.7)},
			check: func(t *testing.T, r RewardTerms) {
				assert.InDelta(t, -0.3, r.Orientation, 1e-9)
			},
		},
		{
			name: "energy",
			pose: physics.SpawnPose(0.3),
			prev: Action{0: 1, 5: -2},
			check: func(t *testing.T, r RewardTerms) {
				assert.InDelta(t, -0.05, r.Energy, 1e-9)
			},
		},
		{
			name: "alive but below band",
			pose: physics.SpawnPose(0.17),
			check: func(t *testing.T, r RewardTerms) {
				assert.Equal(t, 1.0, r.Alive)
				assert.Equal(t, -1.0, r.HeightBand)
			},
		},
		{
			name: "band edges are exclusive",
			pose: physics.SpawnPose(0.5),
			check: func(t *testing.T, r RewardTerms) {
				assert.Equal(t, -1.0, r.HeightBand)
			},
		},
		{
			name: "too low to be alive",
			pose: physics.SpawnPose(0.15),
			check: func(t *testing.T, r RewardTerms) {
				assert.Equal(t, 0.0, r.Alive)
			},
		},
		{
			name: "non-finite state scores zero",
			pose: physics.Pose{Position: r3.Vec{Z: math.NaN()}},
			check: func(t *testing.T, r RewardTerms) {
				assert.Equal(t, 0.0, r.Total())
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, s.Reward(tc.pose, tc.vel, tc.cmd, tc.prev))
		})
	}
}

func TestRewardIsDeterministic(t *testing.T) {
	s := NewRewardShaper(DefaultRewardConfig())
	pose := physics.Pose{Position: r3.Vec{X: 1, Y: 2, Z: 0.27}, Orientation: physics.QuaternionFromEuler(0.05, 0.1, 1)}
	vel := physics.Velocity{Linear: r3.Vec{X: 0.3, Y: 0.1}, Angular: r3.Vec{Z: 0.2}}
	cmd := Command{VX: 0.8, VY: 0.1, Yaw: -0.3}
	prev := Action{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1, 1.1, 1.2}

	first := s.Reward(pose, vel, cmd, prev).Total()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Reward(pose, vel, cmd, prev).Total())
	}
}

func TestRewardConfigValidate(t *testing.T) {
	c := DefaultRewardConfig()
	assert.NoError(t, c.Validate())
	c.BandLow = 0.6
	assert.Error(t, c.Validate())
}
