package env

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/spotsim/internal/physics"
)

func TestEvaluate(t *testing.T) {
	c := EpisodeController{Limits: DefaultEpisodeLimits()}
	tilted := func(roll, pitch, h float64) physics.Pose {
		return physics.Pose{Position: r3.Vec{Z: h}, Orientation: physics.QuaternionFromEuler(roll, pitch, 0)}
	}

	tests := []struct {
		name string
		pose physics.Pose
		step int
		want Status
	}{
		{"upright", physics.SpawnPose(0.3), 10, Running},
		{"fallen", physics.SpawnPose(0.05), 10, TerminatedFallen},
		{"tipped roll", tilted(1.2, 0, 0.3), 10, TerminatedTipped},
		{"tipped pitch", tilted(0, -1.1, 0.3), 10, TerminatedTipped},
		{"leaning", tilted(0.9, 0.9, 0.3), 10, Running},
		{"truncated", physics.SpawnPose(0.3), 1000, Truncated},
		{"before limit", physics.SpawnPose(0.3), 999, Running},
		{"diverged beats everything", physics.Pose{Position: r3.Vec{Z: math.NaN()}}, 1000, TerminatedDiverged},
		{"diverged orientation", physics.Pose{Position: r3.Vec{Z: 0.3}, Orientation: physics.QuaternionFromEuler(math.Inf(1), 0, 0)}, 1, TerminatedDiverged},
		{"fallen beats tipped", tilted(1.5, 0, 0.05), 1000, TerminatedFallen},
		{"tipped beats truncated", tilted(1.2, 0, 0.3), 1000, TerminatedTipped},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Evaluate(tc.pose, tc.step))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.False(t, Running.Done())
	assert.True(t, TerminatedFallen.Terminated())
	assert.False(t, TerminatedFallen.Truncated())
	assert.True(t, Truncated.Truncated())
	assert.False(t, Truncated.Terminated())
	assert.True(t, Truncated.Done())

	for s := Running; s <= Truncated; s++ {
		got, ok := ParseStatus(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseStatus("flying")
	assert.False(t, ok)
}
