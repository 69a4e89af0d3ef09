package physics

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/spotsim/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRobot(t *testing.T) {
	robot := DefaultRobot()

	assert.Equal(t, "spot", robot.Name)
	assert.InDelta(t, 19.4, robot.Mass, 1e-9)

	movable := robot.MovableJoints()
	require.Len(t, movable, 12)
	assert.Equal(t, "motor_front_left_hip", movable[0].Name)
	assert.Equal(t, "motor_back_right_lower_leg", movable[11].Name)
	assert.Len(t, robot.Joints, 16, "fixed foot joints are kept for geometry")

	for _, j := range movable {
		assert.LessOrEqual(t, j.Lower, 0.0, j.Name)
		assert.GreaterOrEqual(t, j.Upper, 0.0, j.Name)
	}
}

func TestParseURDFErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "robot"},
		{"no movable joints", `<robot name="r"><link name="a"/></robot>`},
		{"bad origin", `<robot name="r"><joint name="j" type="revolute"><origin xyz="1 2"/></joint></robot>`},
		{"inverted limits", `<robot name="r"><joint name="j" type="revolute"><limit lower="1" upper="-1"/></joint></robot>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURDF(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseURDFContinuousJoint(t *testing.T) {
	doc := `<robot name="r"><joint name="spin" type="continuous"><limit lower="-1" upper="1"/></joint></robot>`
	robot, err := ParseURDF(strings.NewReader(doc))
	require.NoError(t, err)

	j := robot.MovableJoints()[0]
	assert.Equal(t, "spin", j.Name)
	assert.Less(t, j.Lower, -3.0, "continuous joints ignore limits")
}

func TestLoadURDFMissing(t *testing.T) {
	_, err := LoadURDF(filepath.Join(t.TempDir(), "nope.urdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynamo.ErrAssetNotFound))
}

func TestLoadURDFFromDisk(t *testing.T) {
	robot, err := LoadURDF(filepath.Join("assets", "spot.urdf"))
	require.NoError(t, err)
	assert.Len(t, robot.MovableJoints(), 12)
}
