package dynamo

import (
	"context"
	"errors"
	"fmt"
	"math"
)

type Simulator struct {
	dyn        System
	integrator Integrator
	metrics    []Metric
	observers  []Observer
}

func New(dyn System, integrator Integrator) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run integrates x0 for cfg.Duration. In fixed-step mode the duration is
// rounded to the nearest whole number of steps. On failure the partial
// result is returned together with a *SimulationError.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dim := s.dyn.StateDim(); dim != len(x0) {
		return nil, fmt.Errorf("%w: system expects %d, got %d", ErrDimensionMismatch, dim, len(x0))
	}

	every := cfg.SampleEvery
	if every < 1 {
		every = 1
	}
	steps := int(math.Round(cfg.Duration / cfg.Dt))

	capacity := steps/every + 2
	if cfg.Adaptive {
		capacity = 16
	}
	result := &Result{
		States:  make([]State, 0, capacity),
		Times:   make([]float64, 0, capacity),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	initialEnergy, hasEnergy, err := s.computeEnergy(x)
	if err != nil {
		return nil, &SimulationError{Step: 0, Time: t, Wrapped: err}
	}
	s.record(result, x, t, hasEnergy)
	lastRecorded := 0

	for {
		if cfg.Adaptive {
			remaining := cfg.Duration - t
			if remaining <= 1e-12*cfg.Duration {
				break
			}
			dt = math.Min(dt, remaining)
		} else if result.StepsTaken >= steps {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := s.observe(x, t); err != nil {
			return result, &SimulationError{Step: result.StepsTaken, Time: t, Wrapped: err}
		}

		var newX State
		var taken float64
		var stepErr error
		if cfg.Adaptive {
			newX, taken, dt, stepErr = s.adaptiveStep(x, t, dt, cfg)
		} else {
			newX, stepErr = s.integrator.Step(s.dyn, x, t, dt)
			taken = dt
		}
		if stepErr != nil {
			return result, &SimulationError{Step: result.StepsTaken, Time: t, Wrapped: stepErr}
		}
		if cfg.ValidateState && !newX.IsValid() {
			return result, &SimulationError{Step: result.StepsTaken, Time: t, Wrapped: ErrInvalidState}
		}

		x = newX
		t += taken
		result.StepsTaken++

		if result.StepsTaken%every == 0 {
			s.record(result, x, t, hasEnergy)
			lastRecorded = result.StepsTaken
		}
	}

	if lastRecorded != result.StepsTaken {
		s.record(result, x, t, hasEnergy)
	}
	if err := s.observe(x, t); err != nil {
		return result, &SimulationError{Step: result.StepsTaken, Time: t, Wrapped: err}
	}

	if hasEnergy {
		finalEnergy, err := s.energyOf(x)
		if err != nil {
			return result, &SimulationError{Step: result.StepsTaken, Time: t, Wrapped: err}
		}
		if initialEnergy != 0 {
			result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) observe(x State, t float64) error {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		if err := obs.OnStep(x, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) record(result *Result, x State, t float64, hasEnergy bool) {
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)
	if hasEnergy {
		e, err := s.energyOf(x)
		if err != nil {
			e = math.NaN()
		}
		result.Energies = append(result.Energies, e)
	}
}

func (s *Simulator) computeEnergy(x State) (float64, bool, error) {
	if _, ok := s.dyn.(Hamiltonian); !ok {
		return 0, false, nil
	}
	e, err := s.energyOf(x)
	return e, true, err
}

func (s *Simulator) energyOf(x State) (float64, error) {
	return s.dyn.(Hamiltonian).Energy(x)
}

// adaptiveStep returns the new state, the step actually taken and the
// suggested next step.
func (s *Simulator) adaptiveStep(x State, t, dt float64, cfg Config) (State, float64, float64, error) {
	if adaptive, ok := s.integrator.(AdaptiveIntegrator); ok {
		return s.embeddedStep(adaptive, x, t, dt, cfg)
	}

	for {
		x1, err := s.integrator.Step(s.dyn, x, t, dt)
		if err != nil {
			return nil, 0, 0, err
		}
		xHalf, err := s.integrator.Step(s.dyn, x, t, dt/2)
		if err != nil {
			return nil, 0, 0, err
		}
		x2, err := s.integrator.Step(s.dyn, xHalf, t+dt/2, dt/2)
		if err != nil {
			return nil, 0, 0, err
		}

		errEst := x1.Sub(x2).Norm()
		if errEst > cfg.Tolerance {
			dt /= 2
			if dt < cfg.MinDt {
				return nil, 0, 0, ErrStepTooSmall
			}
			continue
		}

		next := dt
		if errEst < cfg.Tolerance/10 && cfg.MaxDt > 0 {
			next = math.Min(dt*2, cfg.MaxDt)
		}
		return x2, dt, next, nil
	}
}

func (s *Simulator) embeddedStep(adaptive AdaptiveIntegrator, x State, t, dt float64, cfg Config) (State, float64, float64, error) {
	for {
		newX, next, err := adaptive.StepAdaptive(s.dyn, x, t, dt, cfg.Tolerance)
		if errors.Is(err, ErrStepRejected) {
			dt = next
			if dt < cfg.MinDt {
				return nil, 0, 0, ErrStepTooSmall
			}
			continue
		}
		if err != nil {
			return nil, 0, 0, err
		}
		if cfg.MaxDt > 0 {
			next = math.Min(next, cfg.MaxDt)
		}
		return newX, dt, next, nil
	}
}
