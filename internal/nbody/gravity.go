package nbody

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/dynamo"
)

// NewtonianAccelerations sums G m_j (r_j - r_i)/r³ over every massive j in
// ascending index order. A coincident pair involving a massive particle is
// reported as dynamo.ErrInvalidState.
func NewtonianAccelerations(G float64, ps Particles) ([]r3.Vec, error) {
	acc := make([]r3.Vec, len(ps))
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			if ps[i].Mass == 0 && ps[j].Mass == 0 {
				continue
			}
			dx := r3.Sub(ps[j].Pos, ps[i].Pos)
			r2 := r3.Norm2(dx)
			if r2 == 0 {
				return nil, fmt.Errorf("%w: particles %d and %d coincide", dynamo.ErrInvalidState, i, j)
			}
			r3Inv := 1 / (r2 * math.Sqrt(r2))

			acc[i] = r3.Add(acc[i], r3.Scale(G*ps[j].Mass*r3Inv, dx))
			acc[j] = r3.Sub(acc[j], r3.Scale(G*ps[i].Mass*r3Inv, dx))
		}
	}
	return acc, nil
}

// NewtonianEnergy is the kinetic plus pairwise potential energy.
func NewtonianEnergy(G float64, ps Particles) (float64, error) {
	ke, pe := 0.0, 0.0
	for i := range ps {
		ke += 0.5 * ps[i].Mass * r3.Norm2(ps[i].Vel)
		for j := i + 1; j < len(ps); j++ {
			if ps[i].Mass == 0 || ps[j].Mass == 0 {
				continue
			}
			r := r3.Norm(r3.Sub(ps[j].Pos, ps[i].Pos))
			if r == 0 {
				return 0, fmt.Errorf("%w: particles %d and %d coincide", dynamo.ErrInvalidState, i, j)
			}
			pe -= G * ps[i].Mass * ps[j].Mass / r
		}
	}
	return ke + pe, nil
}

// Momentum is the total linear momentum.
func Momentum(ps Particles) r3.Vec {
	var p r3.Vec
	for _, b := range ps {
		p = r3.Add(p, r3.Scale(b.Mass, b.Vel))
	}
	return p
}

// AngularMomentum is the total angular momentum about the origin.
func AngularMomentum(ps Particles) r3.Vec {
	var l r3.Vec
	for _, b := range ps {
		l = r3.Add(l, r3.Scale(b.Mass, r3.Cross(b.Pos, b.Vel)))
	}
	return l
}
