package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/dynamo"
	"github.com/san-kum/pnsim/internal/gr"
	"github.com/san-kum/pnsim/internal/integrators"
	"github.com/san-kum/pnsim/internal/nbody"
)

const (
	DefaultDt          = 0.001
	DefaultDuration    = 10.0
	DefaultIntegrator  = "rk4"
	DefaultSampleEvery = 100
	DefaultTolerance   = 1e-10
)

var ErrInvalid = errors.New("config: invalid")

// operatorIntegrators are the schemes that can advance a velocity kick.
var operatorIntegrators = map[string]bool{
	"":                  true,
	"implicit_midpoint": true,
	"rk2":               true,
	"rk4":               true,
	"euler":             true,
}

type Config struct {
	Name        string           `yaml:"name"`
	Units       string           `yaml:"units,omitempty"`
	G           float64          `yaml:"g"`
	C           float64          `yaml:"c,omitempty"`
	Integrator  string           `yaml:"integrator"`
	Dt          float64          `yaml:"dt"`
	Duration    float64          `yaml:"duration"`
	SampleEvery int              `yaml:"sample_every"`
	Adaptive    bool             `yaml:"adaptive,omitempty"`
	Tolerance   float64          `yaml:"tolerance,omitempty"`
	COM         bool             `yaml:"com,omitempty"`
	Effects     []EffectConfig   `yaml:"effects,omitempty"`
	Particles   []ParticleConfig `yaml:"particles"`
}

type EffectConfig struct {
	// Name is gr, gr_full or gr_potential.
	Name               string `yaml:"name"`
	AsOperator         bool   `yaml:"as_operator,omitempty"`
	OperatorOrder      int    `yaml:"operator_order,omitempty"`
	OperatorIntegrator string `yaml:"operator_integrator,omitempty"`
	SourceIndex        int    `yaml:"source_index,omitempty"`
}

// ParticleConfig is given either in cartesian coordinates or, when Orbit
// is set, by orbital elements about Primary (the first particle if empty).
type ParticleConfig struct {
	Name     string       `yaml:"name"`
	M        float64      `yaml:"m"`
	GRSource bool         `yaml:"gr_source,omitempty"`
	X        float64      `yaml:"x,omitempty"`
	Y        float64      `yaml:"y,omitempty"`
	Z        float64      `yaml:"z,omitempty"`
	VX       float64      `yaml:"vx,omitempty"`
	VY       float64      `yaml:"vy,omitempty"`
	VZ       float64      `yaml:"vz,omitempty"`
	Primary  string       `yaml:"primary,omitempty"`
	Orbit    *OrbitConfig `yaml:"orbit,omitempty"`
}

type OrbitConfig struct {
	A       float64 `yaml:"a"`
	E       float64 `yaml:"e"`
	Inc     float64 `yaml:"inc,omitempty"`
	Node    float64 `yaml:"Omega,omitempty"`
	ArgPeri float64 `yaml:"omega,omitempty"`
	F       float64 `yaml:"f,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:        "custom",
		G:           1,
		Integrator:  DefaultIntegrator,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		SampleEvery: DefaultSampleEvery,
		Tolerance:   DefaultTolerance,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Effects = append([]EffectConfig(nil), c.Effects...)
	out.Particles = make([]ParticleConfig, len(c.Particles))
	for i, p := range c.Particles {
		if p.Orbit != nil {
			o := *p.Orbit
			p.Orbit = &o
		}
		out.Particles[i] = p
	}
	return &out
}

func (c *Config) Validate() error {
	if c.G <= 0 {
		return fmt.Errorf("%w: g must be positive, got %g", ErrInvalid, c.G)
	}
	if c.C < 0 {
		return fmt.Errorf("%w: c must not be negative, got %g", ErrInvalid, c.C)
	}
	if _, err := integrators.Lookup(c.Integrator); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Run().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if len(c.Particles) == 0 {
		return fmt.Errorf("%w: no particles", ErrInvalid)
	}

	seen := make(map[string]bool, len(c.Particles))
	for i, p := range c.Particles {
		if p.M < 0 {
			return fmt.Errorf("%w: particle %d has negative mass", ErrInvalid, i)
		}
		if p.Name != "" {
			if seen[p.Name] {
				return fmt.Errorf("%w: duplicate particle name %q", ErrInvalid, p.Name)
			}
			seen[p.Name] = true
		}
		if p.Orbit != nil && i == 0 {
			return fmt.Errorf("%w: the first particle has no primary to orbit", ErrInvalid)
		}
	}

	effects := make(map[string]bool, len(c.Effects))
	for _, e := range c.Effects {
		if _, err := gr.ParseVariant(e.Name); err != nil {
			return fmt.Errorf("%w: effect %q: %w", ErrInvalid, e.Name, err)
		}
		if effects[e.Name] {
			return fmt.Errorf("%w: effect %q listed twice", ErrInvalid, e.Name)
		}
		effects[e.Name] = true
		if e.OperatorOrder < 0 || e.OperatorOrder > 2 {
			return fmt.Errorf("%w: effect %q: operator order must be 1 or 2", ErrInvalid, e.Name)
		}
		if c.Adaptive && e.AsOperator && e.OperatorOrder != 1 {
			return fmt.Errorf("%w: effect %q: order-2 operators split a fixed step and cannot follow adaptive stepping",
				ErrInvalid, e.Name)
		}
		if !operatorIntegrators[e.OperatorIntegrator] {
			return fmt.Errorf("%w: effect %q: operator integrator %q must be one of implicit_midpoint, rk2, rk4, euler",
				ErrInvalid, e.Name, e.OperatorIntegrator)
		}
		if e.SourceIndex < 0 || e.SourceIndex >= len(c.Particles) {
			return fmt.Errorf("%w: effect %q: source index %d out of range", ErrInvalid, e.Name, e.SourceIndex)
		}
	}
	return nil
}

// Run converts the stepping fields into a simulator configuration.
func (c *Config) Run() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Dt = c.Dt
	cfg.Duration = c.Duration
	cfg.SampleEvery = c.SampleEvery
	cfg.Adaptive = c.Adaptive
	if c.Tolerance > 0 {
		cfg.Tolerance = c.Tolerance
	}
	if c.Adaptive {
		cfg.MaxDt = 100 * c.Dt
		cfg.MinDt = 1e-6 * c.Dt
	}
	return cfg
}

// BuildParticles resolves orbital elements in file order and optionally
// moves the result to the barycentre.
func (c *Config) BuildParticles() (nbody.Particles, error) {
	ps := make(nbody.Particles, 0, len(c.Particles))
	for i, pc := range c.Particles {
		p := nbody.Particle{
			Name: pc.Name,
			Mass: pc.M,
			Pos:  r3.Vec{X: pc.X, Y: pc.Y, Z: pc.Z},
			Vel:  r3.Vec{X: pc.VX, Y: pc.VY, Z: pc.VZ},
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("p%d", i)
		}

		if pc.Orbit != nil {
			if len(ps) == 0 {
				return nil, fmt.Errorf("%w: the first particle has no primary to orbit", ErrInvalid)
			}
			primary := 0
			if pc.Primary != "" {
				if primary = ps.Index(pc.Primary); primary < 0 {
					return nil, fmt.Errorf("%w: particle %q orbits unknown primary %q", ErrInvalid, p.Name, pc.Primary)
				}
			}
			el := nbody.OrbitElements{A: pc.Orbit.A, E: pc.Orbit.E, Inc: pc.Orbit.Inc, Node: pc.Orbit.Node, ArgPeri: pc.Orbit.ArgPeri, F: pc.Orbit.F}
			orb, err := nbody.FromOrbit(c.G, ps[primary], pc.M, el)
			if err != nil {
				return nil, fmt.Errorf("particle %q: %w", p.Name, err)
			}
			p.Pos, p.Vel = orb.Pos, orb.Vel
		}
		if pc.GRSource {
			p.Role = nbody.RoleSource
		}
		ps = append(ps, p)
	}
	if c.COM {
		ps.MoveToCOM()
	}
	return ps, nil
}
