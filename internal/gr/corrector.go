package gr

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/nbody"
)

// Corrector computes 1PN acceleration deltas and the matching Hamiltonian.
// It satisfies nbody.Effect, nbody.Conserved and nbody.EnergyDiagnostic.
type Corrector struct {
	variant     Variant
	g           float64
	c           float64
	c2          float64
	sourceIndex int
}

func New(cfg Config) (*Corrector, error) {
	c, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &Corrector{
		variant:     cfg.Variant,
		g:           cfg.G,
		c:           c,
		c2:          c * c,
		sourceIndex: cfg.SourceIndex,
	}, nil
}

func (c *Corrector) Name() string     { return c.variant.String() }
func (c *Corrector) Variant() Variant { return c.variant }
func (c *Corrector) G() float64       { return c.g }
func (c *Corrector) C() float64       { return c.c }

// VelocityDependent is false only for Potential.
func (c *Corrector) VelocityDependent() bool { return c.variant != Potential }

// Conserves reports whether Hamiltonian is defined.
func (c *Corrector) Conserves() bool { return c.variant != Potential }

// Accelerations returns the 1PN deltas aligned with ps. Particles outside
// every source interaction get a zero vector.
func (c *Corrector) Accelerations(ps nbody.Particles) ([]r3.Vec, error) {
	if err := checkParticles(ps); err != nil {
		return nil, err
	}
	switch c.variant {
	case Full:
		return c.fullAccelerations(ps)
	case SingleSource:
		return c.singleAccelerations(ps)
	default:
		return c.potentialAccelerations(ps)
	}
}

// Hamiltonian is the total energy, kinetic plus Newtonian potential plus
// the 1PN term. Potential has none and returns ErrUnsupportedOperation.
func (c *Corrector) Hamiltonian(ps nbody.Particles) (float64, error) {
	if !c.Conserves() {
		return 0, fmt.Errorf("%w: %s defines no Hamiltonian", ErrUnsupportedOperation, c.variant)
	}
	if err := checkParticles(ps); err != nil {
		return 0, err
	}
	if c.variant == Full {
		return c.fullHamiltonian(ps)
	}
	return c.singleHamiltonian(ps)
}

// DiagnosticEnergy is the Hamiltonian for the conserving variants. For
// Potential it is the Newtonian energy plus the pair potentials
// m̃ Φ(r), which that force conserves without defining a 1PN Hamiltonian.
func (c *Corrector) DiagnosticEnergy(ps nbody.Particles) (float64, error) {
	if c.Conserves() {
		return c.Hamiltonian(ps)
	}
	if err := checkParticles(ps); err != nil {
		return 0, err
	}
	return c.potentialEnergy(ps)
}

// Source returns the index of the particle acting as the single source:
// the one marked nbody.RoleSource, otherwise the configured index.
func (c *Corrector) Source(ps nbody.Particles) (int, error) {
	idx, marked := -1, 0
	for i, p := range ps {
		if p.Role == nbody.RoleSource {
			idx = i
			marked++
		}
	}
	switch {
	case marked > 1:
		return 0, fmt.Errorf("%w: %d particles marked as source", ErrInvalidState, marked)
	case marked == 0:
		if c.sourceIndex >= len(ps) {
			return 0, fmt.Errorf("%w: source index %d out of range for %d particles", ErrInvalidState, c.sourceIndex, len(ps))
		}
		idx = c.sourceIndex
	}
	if !(ps[idx].Mass > 0) {
		return 0, fmt.Errorf("%w: source %d has non-positive mass %g", ErrInvalidState, idx, ps[idx].Mass)
	}
	return idx, nil
}

func checkParticles(ps nbody.Particles) error {
	if len(ps) == 0 {
		return fmt.Errorf("%w: empty snapshot", ErrInvalidState)
	}
	for i, p := range ps {
		if p.Mass < 0 || math.IsNaN(p.Mass) {
			return fmt.Errorf("%w: particle %d has mass %g", ErrInvalidState, i, p.Mass)
		}
	}
	return nil
}

// relative returns r_i - r_s, v_i - v_s and |r|, failing on coincidence.
func relative(p, src nbody.Particle, i, s int) (r, v r3.Vec, d float64, err error) {
	r = r3.Sub(p.Pos, src.Pos)
	v = r3.Sub(p.Vel, src.Vel)
	d = r3.Norm(r)
	if d == 0 {
		return r, v, 0, fmt.Errorf("%w: particle %d coincides with source %d", ErrInvalidState, i, s)
	}
	return r, v, d, nil
}

// distribute splits a relative acceleration between particle i and the
// source so that total momentum is unchanged.
func distribute(acc []r3.Vec, ps nbody.Particles, i, s int, rel r3.Vec) {
	m := ps[s].Mass + ps[i].Mass
	acc[i] = r3.Add(acc[i], r3.Scale(ps[s].Mass/m, rel))
	acc[s] = r3.Sub(acc[s], r3.Scale(ps[i].Mass/m, rel))
}

// pairMu is G (m_s + m_i), the gravitational parameter of the relative
// motion of particle i about the source.
func (c *Corrector) pairMu(ps nbody.Particles, i, s int) float64 {
	return c.g * (ps[s].Mass + ps[i].Mass)
}

func reducedMass(ps nbody.Particles, i, s int) float64 {
	return ps[i].Mass * ps[s].Mass / (ps[i].Mass + ps[s].Mass)
}
