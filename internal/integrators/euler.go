package integrators

import (
	"fmt"

	"github.com/san-kum/spotsim/internal/dynamo"
)

// Euler is the explicit first-order stepper. Only suitable for soft
// contact settings with many sub-steps.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

// New returns the integrator registered under name.
func New(name string) (dynamo.Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "", "rk4":
		return NewRK4(), nil
	case "rk45":
		return NewRK45(), nil
	default:
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
}

// Names lists the registered integrators.
func Names() []string {
	return []string{"euler", "rk4", "rk45"}
}
