package env

import (
	"fmt"
	"math/rand"
)

// Command is the velocity target for an episode: forward, lateral and yaw.
type Command struct {
	VX  float32 `yaml:"vx" json:"vx"`
	VY  float32 `yaml:"vy" json:"vy"`
	Yaw float32 `yaml:"yaw" json:"yaw"`
}

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (r Range) sample(rng *rand.Rand) float32 {
	return float32(r.Min + rng.Float64()*(r.Max-r.Min))
}

// CommandRanges bounds per-episode command sampling.
type CommandRanges struct {
	VX  Range `yaml:"vx"`
	VY  Range `yaml:"vy"`
	Yaw Range `yaml:"yaw"`
}

func DefaultCommandRanges() CommandRanges {
	return CommandRanges{
		VX:  Range{-1, 1},
		VY:  Range{-0.5, 0.5},
		Yaw: Range{-0.5, 0.5},
	}
}

func (r CommandRanges) Validate() error {
	for name, rg := range map[string]Range{"vx": r.VX, "vy": r.VY, "yaw": r.Yaw} {
		if rg.Min > rg.Max || rg.Min < -1 || rg.Max > 1 {
			return fmt.Errorf("command range %s [%g, %g] must be ordered and within [-1, 1]", name, rg.Min, rg.Max)
		}
	}
	return nil
}

// SampleCommand draws each component uniformly from its range.
func SampleCommand(rng *rand.Rand, r CommandRanges) Command {
	return Command{VX: r.VX.sample(rng), VY: r.VY.sample(rng), Yaw: r.Yaw.sample(rng)}
}

// Clamp bounds every component to [-1, 1]. NaN becomes zero.
func (c Command) Clamp() Command {
	v := c.Vector()
	for i := range v {
		v[i] = clampUnit(v[i])
	}
	return Command{VX: v[0], VY: v[1], Yaw: v[2]}
}

func (c Command) Vector() [CommandDim]float32 {
	return [CommandDim]float32{c.VX, c.VY, c.Yaw}
}

func (c Command) String() string {
	return fmt.Sprintf("vx=%+.2f vy=%+.2f yaw=%+.2f", c.VX, c.VY, c.Yaw)
}

func clampUnit(x float32) float32 {
	switch {
	case x != x:
		return 0
	case x < -1:
		return -1
	case x > 1:
		return 1
	}
	return x
}
