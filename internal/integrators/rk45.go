package integrators

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/spotsim/internal/dynamo"
)

// Dormand-Prince 5(4) tableau. The seventh stage evaluates the derivative
// at the fifth-order solution for the error estimate.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// fifth-order weights minus embedded fourth-order weights
	dpE = [7]float64{71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40}
)

// RK45 integrates each Step call with embedded error control. A call
// covering dt may take several internal sub-steps, which keeps stiff foot
// contacts stable without shrinking the world's fixed sub-step.
type RK45 struct {
	Tol      float64
	MinStep  float64
	safety   float64
	minScale float64
	maxScale float64

	k     [7]dynamo.State
	stage dynamo.State
}

func NewRK45() *RK45 {
	return &RK45{
		Tol:      1e-6,
		MinStep:  1e-6,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 5.0,
	}
}

func (r *RK45) resize(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

// Step advances x by exactly dt.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	end := t + dt
	h := dt
	for {
		last := t+h >= end
		if last {
			h = end - t
		}
		next, errRatio := r.attempt(dyn, x, u, t, h)
		if errRatio <= 1 || h <= r.MinStep {
			if last {
				return next
			}
			x = next
			t += h
		}
		h = math.Max(h*r.scale(errRatio), r.MinStep)
	}
}

// StepAdaptive makes a single attempt of size dt and returns the result
// together with the suggested next step size. The result should be
// discarded when the suggested step is smaller than dt.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	saved := r.Tol
	r.Tol = tol
	defer func() { r.Tol = saved }()

	next, errRatio := r.attempt(dyn, x, u, t, dt)
	if !next.IsValid() {
		return next, dt * r.minScale, dynamo.ErrInvalidState
	}
	return next, dt * r.scale(errRatio), nil
}

// attempt returns the fifth-order solution after h and the error estimate
// normalised by the tolerance.
func (r *RK45) attempt(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) (dynamo.State, float64) {
	n := len(x)
	r.resize(n)

	copy(r.k[0], dyn.Derive(x, u, t))
	for s := 1; s < 7; s++ {
		copy(r.stage, x)
		for j := 0; j < s; j++ {
			if dpA[s][j] != 0 {
				floats.AddScaled(r.stage, h*dpA[s][j], r.k[j])
			}
		}
		if s == 6 {
			break
		}
		copy(r.k[s], dyn.Derive(r.stage, u, t+dpC[s]*h))
	}
	next := r.stage.Clone()
	copy(r.k[6], dyn.Derive(next, u, t+h))

	errMax := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for s := range dpE {
			est += dpE[s] * r.k[s][i]
		}
		scale := math.Abs(x[i]) + math.Abs(h*r.k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(h*est)/scale)
	}
	if math.IsNaN(errMax) {
		errMax = math.Inf(1)
	}
	return next, errMax / r.Tol
}

func (r *RK45) scale(errRatio float64) float64 {
	switch {
	case errRatio > 1:
		return math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		return math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		return r.maxScale
	}
}
