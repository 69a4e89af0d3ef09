package env

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/san-kum/spotsim/internal/physics"
)

func infosFor(names []string) []physics.JointInfo {
	out := make([]physics.JointInfo, len(names))
	for i, n := range names {
		out[i] = physics.JointInfo{Index: 100 + i, Name: n}
	}
	return out
}

func TestResolveJointsAll(t *testing.T) {
	m := ResolveJoints(infosFor(JointNames[:]), JointNames, nil)
	assert.Equal(t, NumJoints, m.Count())
	assert.Empty(t, m.Missing())
	idx, ok := m.Index(4)
	assert.True(t, ok)
	assert.Equal(t, 104, idx)
}

func TestResolveJointsMissingKeepsSlots(t *testing.T) {
	names := append([]string{}, JointNames[:]...)
	names = append(names[:2], names[3:]...) // drop front_left_lower_leg
	m := ResolveJoints(infosFor(names), JointNames, nil)

	assert.Equal(t, NumJoints-1, m.Count())
	assert.Equal(t, []string{"motor_front_left_lower_leg"}, m.Missing())
	_, ok := m.Index(2)
	assert.False(t, ok)

	idx, ok := m.Index(3)
	assert.True(t, ok)
	assert.Equal(t, 102, idx)

	slots, indices := m.Resolved()
	assert.Len(t, slots, NumJoints-1)
	assert.Equal(t, 3, slots[2])
	assert.Equal(t, 102, indices[2])
}

func TestResolveJointsIgnoresExtras(t *testing.T) {
	names := append([]string{"base_to_sensor"}, JointNames[:]...)
	m := ResolveJoints(infosFor(names), JointNames, nil)
	assert.Equal(t, NumJoints, m.Count())
	idx, _ := m.Index(0)
	assert.Equal(t, 101, idx)
}

func TestJointMapIndexOutOfRange(t *testing.T) {
	var m JointMap
	_, ok := m.Index(-1)
	assert.False(t, ok)
	_, ok = m.Index(NumJoints)
	assert.False(t, ok)
}
