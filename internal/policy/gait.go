package policy

import (
	"fmt"
	"math"

	"github.com/san-kum/spotsim/internal/env"
)

// Gait is an open-loop trot. Diagonal leg pairs swing in phase; each
// upper joint oscillates around the standing angle and the lower joint
// flexes during the swing half of the cycle.
type Gait struct {
	Amplitude float64
	Frequency float64
	base      env.Action
}

func NewGait(amplitude, frequency float64) *Gait {
	return &Gait{Amplitude: amplitude, Frequency: frequency, base: StandingPose()}
}

// legPhase puts FL and BR in phase, FR and BL half a cycle behind.
var legPhase = [4]float64{0, math.Pi, math.Pi, 0}

func (g *Gait) Act(_ env.Observation, t float64) []float32 {
	out := make([]float32, env.ActionDim)
	copy(out, g.base[:])
	for leg := 0; leg < 4; leg++ {
		s := math.Sin(2*math.Pi*g.Frequency*t + legPhase[leg])
		out[leg*3+1] += float32(g.Amplitude * s)
		out[leg*3+2] -= float32(g.Amplitude * math.Max(0, s))
	}
	return out
}

func (g *Gait) Reset() {}

func (g *Gait) GetParams() map[string]float64 {
	return map[string]float64{
		"amplitude": g.Amplitude,
		"frequency": g.Frequency,
	}
}

func (g *Gait) SetParam(name string, value float64) error {
	switch name {
	case "amplitude":
		if value < 0 {
			return fmt.Errorf("amplitude must be >= 0")
		}
		g.Amplitude = value
	case "frequency":
		if value < 0 {
			return fmt.Errorf("frequency must be >= 0")
		}
		g.Frequency = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
