package nbody

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/dynamo"
	"github.com/san-kum/pnsim/internal/integrators"
)

// Effect is an additional acceleration on top of Newtonian gravity. The
// returned slice is aligned with ps and must not alias it.
type Effect interface {
	Name() string
	VelocityDependent() bool
	Accelerations(ps Particles) ([]r3.Vec, error)
}

// Conserved is implemented by effects that define a total Hamiltonian.
// Callers check Conserves before asking for it.
type Conserved interface {
	Conserves() bool
	Hamiltonian(ps Particles) (float64, error)
}

// EnergyDiagnostic is implemented by effects that conserve some energy
// without defining a Hamiltonian for the whole system.
type EnergyDiagnostic interface {
	DiagnosticEnergy(ps Particles) (float64, error)
}

type OperatorOptions struct {
	// Order 2 kicks half a step before and after the host step, order 1
	// kicks a full step after it. Zero means 2.
	Order int
	// Integrator advances the velocity kick. Nil means implicit midpoint.
	Integrator dynamo.Integrator
}

type operator struct {
	effect Effect
	order  int
	integ  dynamo.Integrator
}

// AddForce sums e into every derivative evaluation. A velocity-dependent
// force on a symplectic host is logged as a warning.
func (s *System) AddForce(e Effect) error {
	if err := s.register(e); err != nil {
		return err
	}
	if e.VelocityDependent() && s.SymplecticHost {
		s.logger.Warn("velocity-dependent force on a symplectic integrator breaks symplecticity; attach it as an operator instead",
			"effect", e.Name())
	}
	s.forces = append(s.forces, e)
	return nil
}

// AddOperator applies e as velocity kicks around each host step. Only an
// OperatorStepper built on s performs the kicks.
func (s *System) AddOperator(e Effect, opts OperatorOptions) error {
	order := opts.Order
	if order == 0 {
		order = 2
	}
	if order != 1 && order != 2 {
		return fmt.Errorf("%w: operator order must be 1 or 2, got %d", ErrInvalidSystem, opts.Order)
	}
	if err := s.register(e); err != nil {
		return err
	}
	integ := opts.Integrator
	if integ == nil {
		integ = integrators.NewImplicitMidpoint()
	}
	s.operators = append(s.operators, &operator{effect: e, order: order, integ: integ})
	s.logger.Debug("operator attached", "effect", e.Name(), "order", order)
	return nil
}

func (s *System) register(e Effect) error {
	if e == nil {
		return fmt.Errorf("%w: nil effect", ErrInvalidSystem)
	}
	if _, ok := s.names[e.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEffect, e.Name())
	}
	s.names[e.Name()] = struct{}{}
	return nil
}

// Effects lists attached effect names, forces first.
func (s *System) Effects() []string {
	effects := s.attached()
	names := make([]string, len(effects))
	for i, e := range effects {
		names[i] = e.Name()
	}
	return names
}

func (s *System) attached() []Effect {
	effects := make([]Effect, 0, len(s.forces)+len(s.operators))
	effects = append(effects, s.forces...)
	for _, op := range s.operators {
		effects = append(effects, op.effect)
	}
	return effects
}

func (s *System) HasOperators() bool { return len(s.operators) > 0 }
