package integrators

import (
	"math"

	"github.com/san-kum/pnsim/internal/dynamo"
)

const (
	defaultMidpointIterations = 10
	midpointTolerance         = 1e-15
)

// ImplicitMidpoint solves x1 = x0 + dt f((x0+x1)/2) by fixed-point
// iteration. It is symmetric and symplectic for Hamiltonian flows, which
// makes it the default for applying velocity-dependent effects as operators.
type ImplicitMidpoint struct {
	MaxIterations int

	mid        dynamo.State
	iterations int
	converged  bool
}

func NewImplicitMidpoint() *ImplicitMidpoint {
	return &ImplicitMidpoint{MaxIterations: defaultMidpointIterations}
}

func (m *ImplicitMidpoint) Step(dyn dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	n := len(x)
	if len(m.mid) != n {
		m.mid = make(dynamo.State, n)
	}
	maxIter := m.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMidpointIterations
	}

	dx, err := dyn.Derive(x, t)
	if err != nil {
		return nil, err
	}
	next := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		next[i] = x[i] + dt*dx[i]
	}

	m.converged = false
	m.iterations = 0
	for m.iterations < maxIter {
		m.iterations++
		for i := 0; i < n; i++ {
			m.mid[i] = 0.5 * (x[i] + next[i])
		}
		dx, err = dyn.Derive(m.mid, t+0.5*dt)
		if err != nil {
			return nil, err
		}

		change, size := 0.0, 0.0
		for i := 0; i < n; i++ {
			updated := x[i] + dt*dx[i]
			change = math.Max(change, math.Abs(updated-next[i]))
			size = math.Max(size, math.Abs(updated))
			next[i] = updated
		}
		if change <= midpointTolerance*size {
			m.converged = true
			break
		}
	}

	return next, nil
}

// Iterations reports how many fixed-point iterations the last step used.
func (m *ImplicitMidpoint) Iterations() int { return m.iterations }

// Converged reports whether the last step met the tolerance before running
// out of iterations.
func (m *ImplicitMidpoint) Converged() bool { return m.converged }
