package nbody

import "gonum.org/v1/gonum/spatial/r3"

// SourceRole marks a particle as the dominant mass of a single-source
// effect, independent of its index.
type SourceRole int

const (
	RoleNone SourceRole = iota
	RoleSource
)

func (r SourceRole) String() string {
	if r == RoleSource {
		return "source"
	}
	return "none"
}

type Particle struct {
	Name string
	Mass float64
	Pos  r3.Vec
	Vel  r3.Vec
	Role SourceRole
}

// Particles is an ordered snapshot. Indices are stable within one
// evaluation.
type Particles []Particle

func (ps Particles) Clone() Particles {
	out := make(Particles, len(ps))
	copy(out, ps)
	return out
}

// Index returns the position of the particle called name, or -1.
func (ps Particles) Index(name string) int {
	for i, p := range ps {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (ps Particles) TotalMass() float64 {
	m := 0.0
	for _, p := range ps {
		m += p.Mass
	}
	return m
}

// CenterOfMass returns the barycentre position and velocity. Both are zero
// when the total mass is zero.
func (ps Particles) CenterOfMass() (pos, vel r3.Vec) {
	m := ps.TotalMass()
	if m == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	for _, p := range ps {
		pos = r3.Add(pos, r3.Scale(p.Mass, p.Pos))
		vel = r3.Add(vel, r3.Scale(p.Mass, p.Vel))
	}
	return r3.Scale(1/m, pos), r3.Scale(1/m, vel)
}

// MoveToCOM shifts ps in place into the barycentric frame.
func (ps Particles) MoveToCOM() {
	pos, vel := ps.CenterOfMass()
	for i := range ps {
		ps[i].Pos = r3.Sub(ps[i].Pos, pos)
		ps[i].Vel = r3.Sub(ps[i].Vel, vel)
	}
}
