// Package dynamo provides the numeric primitives shared by the physics
// world and the training environment.
//
// The package defines:
//
//   - [State]: flat vector holding an ODE state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - domain errors returned by worlds and environments
//
// # Example
//
//	integ := integrators.NewRK4()
//	x = integ.Step(body, x, nil, t, dt)
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT safe for concurrent use.
// Each physics world owns its own integrator.
package dynamo
