// Package dynamo provides core primitives shared by the simulation packages.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations (ODEs):
//
//   - [State]: flat vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator] and [AdaptiveIntegrator]: single-step solvers
//   - [ParallelFor]: deterministic fan-out over independent index ranges
//
// # Errors
//
// Every failure surfaced by the simulator wraps one of the sentinel errors
// declared here, so callers can branch with errors.Is:
//
//	if errors.Is(err, dynamo.ErrInvalidParameter) {
//	    var pe *dynamo.ParameterError
//	    if errors.As(err, &pe) {
//	        fmt.Println("bad parameter:", pe.Param)
//	    }
//	}
package dynamo
