package env

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleCommandInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := DefaultCommandRanges()
	for i := 0; i < 200; i++ {
		c := SampleCommand(rng, r)
		assert.True(t, c.VX >= -1 && c.VX <= 1)
		assert.True(t, c.VY >= -0.5 && c.VY <= 0.5)
		assert.True(t, c.Yaw >= -0.5 && c.Yaw <= 0.5)
	}
}

func TestSampleCommandSeeded(t *testing.T) {
	a := SampleCommand(rand.New(rand.NewSource(42)), DefaultCommandRanges())
	b := SampleCommand(rand.New(rand.NewSource(42)), DefaultCommandRanges())
	assert.Equal(t, a, b)
}

func TestCommandClamp(t *testing.T) {
	c := Command{VX: 2, VY: float32(math.NaN()), Yaw: -0.25}.Clamp()
	assert.Equal(t, Command{VX: 1, VY: 0, Yaw: -0.25}, c)
}

func TestCommandRangesValidate(t *testing.T) {
	assert.NoError(t, DefaultCommandRanges().Validate())
	r := DefaultCommandRanges()
	r.VY = Range{0.5, -0.5}
	assert.Error(t, r.Validate())
}
