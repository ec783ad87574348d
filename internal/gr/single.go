package gr

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/nbody"
)

// singleAccelerations applies the 1PN field of the source to each
// particle's motion relative to it,
//
//	a = μ/(c² r³) [ (4μ/r − v²) r + 4 (r·v) v ],   μ = G (m_s + m_i),
//
// so that each source pair conserves singleHamiltonian exactly.
func (c *Corrector) singleAccelerations(ps nbody.Particles) ([]r3.Vec, error) {
	s, err := c.Source(ps)
	if err != nil {
		return nil, err
	}
	acc := make([]r3.Vec, len(ps))

	for i := range ps {
		if i == s {
			continue
		}
		r, v, d, err := relative(ps[i], ps[s], i, s)
		if err != nil {
			return nil, err
		}
		mu := c.pairMu(ps, i, s)
		pre := mu / (c.c2 * d * d * d)
		rel := r3.Add(r3.Scale(4*mu/d-r3.Norm2(v), r), r3.Scale(4*r3.Dot(r, v), v))
		distribute(acc, ps, i, s, r3.Scale(pre, rel))
	}
	return acc, nil
}

// singleHamiltonian adds m̃ (3/8 v⁴ + 3/2 μ v²/r + ½ μ²/r²)/c² per
// particle to the Newtonian energy, with m̃ the reduced mass and μ the
// gravitational parameter of the pair.
func (c *Corrector) singleHamiltonian(ps nbody.Particles) (float64, error) {
	s, err := c.Source(ps)
	if err != nil {
		return 0, err
	}

	pn := 0.0
	for i := range ps {
		if i == s {
			continue
		}
		_, v, d, err := relative(ps[i], ps[s], i, s)
		if err != nil {
			return 0, err
		}
		mu := c.pairMu(ps, i, s)
		v2 := r3.Norm2(v)
		pn += reducedMass(ps, i, s) * (0.375*v2*v2 + 1.5*mu*v2/d + 0.5*mu*mu/(d*d))
	}

	newton, err := nbody.NewtonianEnergy(c.g, ps)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return newton + pn/c.c2, nil
}
