package gr

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/nbody"
)

// fullAccelerations evaluates the Einstein-Infeld-Hoffmann equations with
// every massive particle as a source, summing sources j in ascending order:
//
//	δa_i = Σ_j G m_j (r_j − r_i)/r_ij³ [ −4φ_i − φ_j + v_i² + 2v_j² − 4 v_i·v_j
//	           − 3/2 ((r_i − r_j)·v_j / r_ij)² + ½ (r_j − r_i)·a_j ] / c²
//	     + Σ_j G m_j/r_ij³ [(r_i − r_j)·(4v_i − 3v_j)] (v_i − v_j) / c²
//	     + 7/2 Σ_j G m_j a_j / (r_ij c²)
//
// where φ_i = Σ_{k≠i} G m_k / r_ik and a_j is the Newtonian acceleration.
func (c *Corrector) fullAccelerations(ps nbody.Particles) ([]r3.Vec, error) {
	newton, err := nbody.NewtonianAccelerations(c.g, ps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	phi := c.potentials(ps)
	acc := make([]r3.Vec, len(ps))

	for i, pi := range ps {
		vi2 := r3.Norm2(pi.Vel)
		var sum r3.Vec
		for j, pj := range ps {
			if j == i || pj.Mass == 0 {
				continue
			}
			rji := r3.Sub(pj.Pos, pi.Pos)
			d := r3.Norm(rji)
			d3 := d * d * d
			gm := c.g * pj.Mass

			nv := r3.Dot(rji, pj.Vel) / d
			bracket := -4*phi[i] - phi[j] + vi2 + 2*r3.Norm2(pj.Vel) - 4*r3.Dot(pi.Vel, pj.Vel) -
				1.5*nv*nv + 0.5*r3.Dot(rji, newton[j])
			sum = r3.Add(sum, r3.Scale(gm/d3*bracket, rji))

			proj := -r3.Dot(rji, r3.Sub(r3.Scale(4, pi.Vel), r3.Scale(3, pj.Vel)))
			sum = r3.Add(sum, r3.Scale(gm/d3*proj, r3.Sub(pi.Vel, pj.Vel)))

			sum = r3.Add(sum, r3.Scale(3.5*gm/d, newton[j]))
		}
		acc[i] = r3.Scale(1/c.c2, sum)
	}
	return acc, nil
}

// fullHamiltonian is the EIH energy:
//
//	H = Σ ½ m v² − Σ_{a<b} G m_a m_b / r
//	  + [ Σ 3/8 m v⁴ + Σ_{a<b} G m_a m_b/(2r) (3(v_a² + v_b²) − 7 v_a·v_b − (n·v_a)(n·v_b))
//	    + Σ_a ½ m_a φ_a² ] / c²
func (c *Corrector) fullHamiltonian(ps nbody.Particles) (float64, error) {
	if _, err := nbody.NewtonianAccelerations(c.g, ps); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	phi := c.potentials(ps)

	newton, pn := 0.0, 0.0
	for a, pa := range ps {
		va2 := r3.Norm2(pa.Vel)
		newton += 0.5 * pa.Mass * va2
		pn += 0.375*pa.Mass*va2*va2 + 0.5*pa.Mass*phi[a]*phi[a]

		for b := a + 1; b < len(ps); b++ {
			pb := ps[b]
			if pa.Mass == 0 || pb.Mass == 0 {
				continue
			}
			rab := r3.Sub(pa.Pos, pb.Pos)
			d := r3.Norm(rab)
			n := r3.Scale(1/d, rab)
			gmm := c.g * pa.Mass * pb.Mass / d

			newton -= gmm
			pn += 0.5 * gmm * (3*(va2+r3.Norm2(pb.Vel)) - 7*r3.Dot(pa.Vel, pb.Vel) - r3.Dot(n, pa.Vel)*r3.Dot(n, pb.Vel))
		}
	}
	return newton + pn/c.c2, nil
}

// potentials returns φ_i = Σ_{k≠i} G m_k / r_ik. Callers have ruled out
// coincident massive pairs.
func (c *Corrector) potentials(ps nbody.Particles) []float64 {
	phi := make([]float64, len(ps))
	for i := range ps {
		for k := i + 1; k < len(ps); k++ {
			if ps[i].Mass == 0 && ps[k].Mass == 0 {
				continue
			}
			d := r3.Norm(r3.Sub(ps[i].Pos, ps[k].Pos))
			phi[i] += c.g * ps[k].Mass / d
			phi[k] += c.g * ps[i].Mass / d
		}
	}
	return phi
}
