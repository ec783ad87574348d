package integrators

import "github.com/san-kum/pnsim/internal/dynamo"

// RK2 is the explicit midpoint method.
type RK2 struct {
	scratch dynamo.State
}

func NewRK2() *RK2 {
	return &RK2{}
}

func (r *RK2) Step(dyn dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	n := len(x)
	if len(r.scratch) != n {
		r.scratch = make(dynamo.State, n)
	}

	k1, err := dyn.Derive(x, t)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + 0.5*dt*k1[i]
	}
	k2, err := dyn.Derive(r.scratch, t+0.5*dt)
	if err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt*k2[i]
	}
	return result, nil
}
