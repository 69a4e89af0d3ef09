package metrics

import (
	"math"
)

// ControlEffort is the mean absolute joint target per step.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(tr Transition) {
	var s float64
	for _, val := range tr.Action {
		s += math.Abs(float64(val))
	}
	c.sum += s / float64(len(tr.Action))
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
