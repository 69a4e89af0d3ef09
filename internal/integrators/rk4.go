package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/spotsim/internal/dynamo"
)

// RK4 is the classic fourth-order Runge-Kutta stepper. It is the default
// for the quadruped body.
type RK4 struct {
	k       [4]dynamo.State
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.scratch) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.scratch = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.resize(len(x))

	copy(r.k[0], dyn.Derive(x, u, t))
	floats.AddScaledTo(r.scratch, x, dt/2, r.k[0])
	copy(r.k[1], dyn.Derive(r.scratch, u, t+dt/2))
	floats.AddScaledTo(r.scratch, x, dt/2, r.k[1])
	copy(r.k[2], dyn.Derive(r.scratch, u, t+dt/2))
	floats.AddScaledTo(r.scratch, x, dt, r.k[2])
	copy(r.k[3], dyn.Derive(r.scratch, u, t+dt))

	out := x.Clone()
	floats.AddScaled(out, dt/6, r.k[0])
	floats.AddScaled(out, dt/3, r.k[1])
	floats.AddScaled(out, dt/3, r.k[2])
	floats.AddScaled(out, dt/6, r.k[3])
	return out
}
