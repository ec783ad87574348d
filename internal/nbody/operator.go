package nbody

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/dynamo"
)

// OperatorStepper wraps a host integrator with the operator kicks of sys:
// order-2 operators kick dt/2 before the host step in attachment order and
// dt/2 after it in reverse order, then order-1 operators kick a full dt.
type OperatorStepper struct {
	sys         *System
	host        dynamo.Integrator
	unconverged int
}

// converger is implemented by iterative kick integrators.
type converger interface {
	Converged() bool
}

func NewOperatorStepper(sys *System, host dynamo.Integrator) *OperatorStepper {
	return &OperatorStepper{sys: sys, host: host}
}

func (o *OperatorStepper) Step(dyn dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	ops := o.sys.operators
	var err error

	for _, op := range ops {
		if op.order != 2 {
			continue
		}
		if x, err = o.kick(op, x, t, 0.5*dt); err != nil {
			return nil, err
		}
	}

	if x, err = o.host.Step(dyn, x, t, dt); err != nil {
		return nil, err
	}

	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].order != 2 {
			continue
		}
		if x, err = o.kick(ops[i], x, t+0.5*dt, 0.5*dt); err != nil {
			return nil, err
		}
	}
	for _, op := range ops {
		if op.order != 1 {
			continue
		}
		if x, err = o.kick(op, x, t+dt, dt); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// Unconverged counts kicks whose iterative integrator stopped before
// reaching its tolerance.
func (o *OperatorStepper) Unconverged() int { return o.unconverged }

// kick integrates dv/dt = a_effect(x, v) over h with positions frozen.
func (o *OperatorStepper) kick(op *operator, x dynamo.State, t, h float64) (dynamo.State, error) {
	ps, err := o.sys.Unpack(x)
	if err != nil {
		return nil, err
	}
	n := len(ps)
	ks := &kickSystem{effect: op.effect, frozen: ps}

	v, err := op.integ.Step(ks, x[3*n:], t, h)
	if err != nil {
		return nil, fmt.Errorf("%s operator: %w", op.effect.Name(), err)
	}
	if cv, ok := op.integ.(converger); ok && !cv.Converged() {
		if o.unconverged == 0 {
			o.sys.logger.Warn("operator kick did not converge; accepting last iterate",
				"effect", op.effect.Name(), "t", t)
		}
		o.unconverged++
	}
	out := x.Clone()
	copy(out[3*n:], v)
	return out, nil
}

// kickSystem exposes the velocities of a frozen snapshot as the state.
type kickSystem struct {
	effect Effect
	frozen Particles
}

func (k *kickSystem) StateDim() int { return 3 * len(k.frozen) }

func (k *kickSystem) Derive(v dynamo.State, t float64) (dynamo.State, error) {
	ps := k.frozen.Clone()
	for i := range ps {
		ps[i].Vel = r3.Vec{X: v[3*i], Y: v[3*i+1], Z: v[3*i+2]}
	}
	acc, err := k.effect.Accelerations(ps)
	if err != nil {
		return nil, err
	}
	dv := make(dynamo.State, 3*len(ps))
	for i, a := range acc {
		dv[3*i], dv[3*i+1], dv[3*i+2] = a.X, a.Y, a.Z
	}
	return dv, nil
}
