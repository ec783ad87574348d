package dynamo

import (
	"fmt"
	"math"
)

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

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is an ODE right-hand side. Derive may fail when the state is
// outside the model's domain (coincident bodies, for instance).
type System interface {
	Derive(x State, t float64) (State, error)
	StateDim() int
}

// Hamiltonian is implemented by systems with a conserved energy-like scalar.
type Hamiltonian interface {
	Energy(x State) (float64, error)
}

type Integrator interface {
	Step(dyn System, x State, t, dt float64) (State, error)
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, t, dt, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

// Observer sees the state before every step and once at the end. A
// non-nil error stops the run.
type Observer interface {
	OnStep(x State, t float64) error
}

type Config struct {
	Dt            float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
	// SampleEvery keeps every n-th state in the result; 0 or 1 keeps all.
	SampleEvery int
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		Tolerance:     1e-9,
		MaxDt:         0.1,
		MinDt:         1e-10,
		Adaptive:      false,
		ValidateState: true,
		SampleEvery:   1,
	}
}

func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, c.Duration)
	}
	if c.Adaptive && c.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", ErrInvalidConfig)
	}
	if c.Adaptive && c.MinDt <= 0 {
		return fmt.Errorf("%w: min dt must be positive for adaptive stepping", ErrInvalidConfig)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("%w: sample_every must not be negative", ErrInvalidConfig)
	}
	return nil
}

type Result struct {
	States  []State
	Times   []float64
	Metrics map[string]float64
	// Energies holds the system energy at each sampled state when the
	// system implements Hamiltonian.
	Energies    []float64
	EnergyDrift float64
	StepsTaken  int
}
