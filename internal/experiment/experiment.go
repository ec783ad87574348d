// Package experiment assembles a runnable simulation from a configuration:
// particles, attached effects, integrator and diagnostics.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/pnsim/internal/config"
	"github.com/san-kum/pnsim/internal/dynamo"
	"github.com/san-kum/pnsim/internal/gr"
	"github.com/san-kum/pnsim/internal/integrators"
	"github.com/san-kum/pnsim/internal/metrics"
	"github.com/san-kum/pnsim/internal/nbody"
	"github.com/san-kum/pnsim/internal/units"
)

// stabilityBound flags runs in which a coordinate or velocity escapes far
// beyond planetary scales.
const stabilityBound = 1e6

type Experiment struct {
	cfg       *config.Config
	system    *nbody.System
	simulator *dynamo.Simulator
	runCfg    dynamo.Config
	stepper   *nbody.OperatorStepper
	primary   int
	rateUnit  string
	logger    *slog.Logger
}

// Build validates cfg and wires the system, effects, integrator and
// metrics. An unset c without units means the default c, which gr refuses
// when g is not the matching default.
func Build(cfg *config.Config, logger *slog.Logger) (*Experiment, error) {
	return NewRegistry().Build(cfg, logger)
}

func (r *Registry) Build(cfg *config.Config, logger *slog.Logger) (*Experiment, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ps, err := cfg.BuildParticles()
	if err != nil {
		return nil, err
	}
	sys, err := nbody.NewSystem(cfg.G, ps, logger)
	if err != nil {
		return nil, err
	}
	sys.SymplecticHost = integrators.Symplectic(cfg.Integrator)

	k := Constants{G: cfg.G, C: cfg.C, Units: cfg.Units}
	if k.C == 0 && k.Units == "" {
		k.C = gr.DefaultC
	}

	primary := primaryIndex(ps)
	for _, ec := range cfg.Effects {
		effect, err := r.GetEffect(ec, k)
		if err != nil {
			return nil, fmt.Errorf("effect %s: %w", ec.Name, err)
		}
		if c, ok := effect.(*gr.Corrector); ok && c.Variant() != gr.Full {
			if idx, err := c.Source(ps); err == nil {
				primary = idx
			}
		}

		if !ec.AsOperator {
			if err := sys.AddForce(effect); err != nil {
				return nil, err
			}
			continue
		}
		name := ec.OperatorIntegrator
		if name == "" {
			name = "implicit_midpoint"
		}
		integ, err := integrators.Lookup(name)
		if err != nil {
			return nil, err
		}
		if err := sys.AddOperator(effect, nbody.OperatorOptions{Order: ec.OperatorOrder, Integrator: integ}); err != nil {
			return nil, err
		}
	}

	integ, err := integrators.Lookup(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	var stepper *nbody.OperatorStepper
	if sys.HasOperators() {
		stepper = nbody.NewOperatorStepper(sys, integ)
		integ = stepper
	}

	e := &Experiment{
		cfg:       cfg,
		system:    sys,
		simulator: dynamo.New(sys, integ),
		runCfg:    cfg.Run(),
		stepper:   stepper,
		primary:   primary,
		logger:    logger.With("component", "experiment", "name", cfg.Name),
	}
	scale, err := e.rateScale(k)
	if err != nil {
		return nil, err
	}
	for _, m := range e.defaultMetrics(ps, scale) {
		e.simulator.AddMetric(m)
	}
	e.simulator.AddObserver(newProgress(e.logger, e.runCfg))
	e.simulator.AddObserver(divergence{bound: divergenceBound})
	return e, nil
}

// primaryIndex is the marked source, or the first particle.
func primaryIndex(ps nbody.Particles) int {
	for i, p := range ps {
		if p.Role == nbody.RoleSource {
			return i
		}
	}
	return 0
}

// rateScale converts precession rates to arcsec per century when the time
// unit is known.
func (e *Experiment) rateScale(k Constants) (float64, error) {
	sys := units.Default
	switch {
	case k.Units != "":
		var err error
		if sys, err = units.ParseSystem(k.Units); err != nil {
			return 0, err
		}
	case math.Abs(k.C-gr.DefaultC) > 1e-4*gr.DefaultC:
		e.rateUnit = "rad/time"
		return 1, nil
	}
	sec, err := sys.TimeSeconds()
	if err != nil {
		return 0, err
	}
	e.rateUnit = "arcsec/cy"
	return metrics.ArcsecPerCentury(sec), nil
}

func (e *Experiment) defaultMetrics(ps nbody.Particles, scale float64) []dynamo.Metric {
	ms := []dynamo.Metric{
		metrics.NewEnergyDrift(e.system),
		metrics.NewStability(stabilityBound),
	}
	for i, p := range ps {
		if i == e.primary {
			continue
		}
		ms = append(ms,
			metrics.NewPrecession(e.system, i, e.primary, scale).Named(PrecessionMetric(p.Name)),
			metrics.NewMinDistance(len(ps), e.primary, i),
		)
	}
	return ms
}

// PrecessionMetric names the precession metric of a particle.
func PrecessionMetric(particle string) string { return "precession_" + particle }

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	e.logger.Info("run started",
		"effects", e.system.Effects(),
		"integrator", e.cfg.Integrator,
		"dt", e.runCfg.Dt,
		"duration", e.runCfg.Duration)

	res, err := e.simulator.Run(ctx, e.system.InitialState(), e.runCfg)
	if e.stepper != nil && e.stepper.Unconverged() > 0 {
		e.logger.Warn("operator kicks accepted without convergence", "kicks", e.stepper.Unconverged())
	}
	if err != nil {
		e.logger.Error("run failed", "error", err)
		return res, err
	}
	e.logger.Info("run finished", "steps", res.StepsTaken, "energy_drift", res.EnergyDrift)
	return res, nil
}

func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) System() *nbody.System        { return e.system }
func (e *Experiment) Simulator() *dynamo.Simulator { return e.simulator }
func (e *Experiment) RunConfig() dynamo.Config     { return e.runCfg }
func (e *Experiment) Primary() int                 { return e.primary }

// RateUnit is the unit of the precession metrics.
func (e *Experiment) RateUnit() string { return e.rateUnit }
