package env

import (
	"fmt"

	"github.com/san-kum/spotsim/internal/physics"
)

// Gains are the position-control parameters sent with every joint target.
type Gains struct {
	P        float64 `yaml:"p"`
	D        float64 `yaml:"d"`
	MaxForce float64 `yaml:"max_force"`
}

func DefaultGains() Gains {
	return Gains{P: 0.3, D: 0.1, MaxForce: 100}
}

// ActionApplier converts a policy action into joint position targets.
type ActionApplier struct {
	Gains Gains
	space Space
}

func NewActionApplier(g Gains) *ActionApplier {
	return &ActionApplier{Gains: g, space: ActionSpace()}
}

// Clamp bounds every target to the action space. NaN becomes zero.
func (a *ActionApplier) Clamp(act Action) Action {
	a.space.Clip(act[:])
	return act
}

// Apply clamps act and issues one target per resolved joint. It advances
// no simulated time and returns the action actually applied.
func (a *ActionApplier) Apply(w physics.World, h physics.BodyHandle, m JointMap, act Action) (Action, error) {
	act = a.Clamp(act)
	for slot, target := range act {
		joint, ok := m.Index(slot)
		if !ok {
			continue
		}
		if err := w.SetJointTarget(h, joint, float64(target), a.Gains.P, a.Gains.D, a.Gains.MaxForce); err != nil {
			return act, fmt.Errorf("set target %s: %w", JointNames[slot], err)
		}
	}
	return act, nil
}
