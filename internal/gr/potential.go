package gr

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/nbody"
)

// potentialAccelerations derives the correction from the pair potential
// Φ = −3μ²/(c² r²), giving a = −6μ²/(c² r⁴) r relative to the source
// with μ = G (m_s + m_i).
func (c *Corrector) potentialAccelerations(ps nbody.Particles) ([]r3.Vec, error) {
	s, err := c.Source(ps)
	if err != nil {
		return nil, err
	}
	acc := make([]r3.Vec, len(ps))

	for i := range ps {
		if i == s {
			continue
		}
		r, _, d, err := relative(ps[i], ps[s], i, s)
		if err != nil {
			return nil, err
		}
		mu := c.pairMu(ps, i, s)
		d2 := d * d
		distribute(acc, ps, i, s, r3.Scale(-6*mu*mu/(c.c2*d2*d2), r))
	}
	return acc, nil
}

// potentialEnergy is the Newtonian energy plus Σ m̃ Φ(r) over the source
// pairs.
func (c *Corrector) potentialEnergy(ps nbody.Particles) (float64, error) {
	s, err := c.Source(ps)
	if err != nil {
		return 0, err
	}

	pot := 0.0
	for i := range ps {
		if i == s {
			continue
		}
		_, _, d, err := relative(ps[i], ps[s], i, s)
		if err != nil {
			return 0, err
		}
		mu := c.pairMu(ps, i, s)
		pot -= reducedMass(ps, i, s) * 3 * mu * mu / (c.c2 * d * d)
	}

	newton, err := nbody.NewtonianEnergy(c.g, ps)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return newton + pot, nil
}
