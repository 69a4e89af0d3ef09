package metrics

import "math"

// CommandTracking is the mean absolute error between forward velocity
// and the scaled forward command.
type CommandTracking struct {
	scale   float64
	sum     float64
	samples int
}

func NewCommandTracking(scale float64) *CommandTracking {
	return &CommandTracking{scale: scale}
}

func (c *CommandTracking) Name() string { return "tracking_error" }

func (c *CommandTracking) Observe(tr Transition) {
	vx := tr.Reading.Velocity.Linear.X
	if math.IsNaN(vx) || math.IsInf(vx, 0) {
		return
	}
	c.sum += math.Abs(vx - float64(tr.Command.VX)*c.scale)
	c.samples++
}

func (c *CommandTracking) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *CommandTracking) Reset() {
	c.sum = 0
	c.samples = 0
}
