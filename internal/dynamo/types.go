package dynamo

import "math"

// State is a flat ODE state vector.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Control is an exogenous input. The physics world drives bodies through
// joint targets instead, so it is nil there.
type Control []float64

// System is an ODE right-hand side. The physics world wraps each loaded
// body in a System so any Integrator can advance it.
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Configurable exposes named tunable parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Finite reports whether every value is neither NaN nor Inf.
func Finite(vals ...float64) bool {
	return State(vals).IsValid()
}
