package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/pnsim/internal/dynamo"
)

// MinDistance records the closest approach between particles i and j.
type MinDistance struct {
	name string
	n    int
	i, j int
	min  float64
}

// NewMinDistance tracks particles i and j of an n-particle packed state.
func NewMinDistance(n, i, j int) *MinDistance {
	return &MinDistance{
		name: fmt.Sprintf("min_distance_%d_%d", i, j),
		n:    n,
		i:    i,
		j:    j,
		min:  math.Inf(1),
	}
}

func (m *MinDistance) Name() string { return m.name }

func (m *MinDistance) Observe(x dynamo.State, t float64) {
	if len(x) < 3*m.n {
		return
	}
	dx := x[3*m.j] - x[3*m.i]
	dy := x[3*m.j+1] - x[3*m.i+1]
	dz := x[3*m.j+2] - x[3*m.i+2]
	m.min = math.Min(m.min, math.Sqrt(dx*dx+dy*dy+dz*dz))
}

// Value is +Inf before the first observation.
func (m *MinDistance) Value() float64 { return m.min }

func (m *MinDistance) Reset() {
	m.min = math.Inf(1)
}
