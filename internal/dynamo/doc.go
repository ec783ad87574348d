// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: numerical stepper interface
//   - [Simulator]: orchestrates simulation runs
//   - [Ensemble]: runs several independent simulations concurrently
//
// # Example
//
//	sys := nbody.NewSystem(1.0, particles, logger)
//	sim := dynamo.New(sys, integrators.NewRK4())
//	result, _ := sim.Run(ctx, sys.Pack(particles), cfg)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe and integrators keep scratch
// buffers. For parallel simulations build one simulator per run and use
// [Ensemble].
package dynamo
