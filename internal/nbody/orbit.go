package nbody

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/dynamo"
)

const twoPi = 2 * math.Pi

// Orbit holds osculating elements of a particle about a primary. Angles
// are in radians in [0, 2π).
type Orbit struct {
	A       float64 // semi-major axis
	E       float64 // eccentricity
	Inc     float64 // inclination
	Node    float64 // longitude of ascending node
	ArgPeri float64 // argument of pericenter
	Pomega  float64 // longitude of pericenter
	F       float64 // true anomaly
	M       float64 // mean anomaly
	P       float64 // period, +Inf when unbound
	H       float64 // specific angular momentum
}

// OrbitElements are the inputs of FromOrbit.
type OrbitElements struct {
	A       float64
	E       float64
	Inc     float64
	Node    float64
	ArgPeri float64
	F       float64
}

const orbitTiny = 1e-15

// OrbitOf computes the osculating orbit of p about primary with
// μ = G (m_p + m_primary).
func OrbitOf(G float64, p, primary Particle) (Orbit, error) {
	mu := G * (p.Mass + primary.Mass)
	if mu <= 0 {
		return Orbit{}, fmt.Errorf("%w: no mass to orbit", ErrInvalidOrbit)
	}
	r := r3.Sub(p.Pos, primary.Pos)
	v := r3.Sub(p.Vel, primary.Vel)
	d := r3.Norm(r)
	if d == 0 {
		return Orbit{}, fmt.Errorf("%w: particle sits on its primary", dynamo.ErrInvalidState)
	}

	h := r3.Cross(r, v)
	hn := r3.Norm(h)
	v2 := r3.Norm2(v)
	rv := r3.Dot(r, v)

	evec := r3.Sub(r3.Scale(v2/mu-1/d, r), r3.Scale(rv/mu, v))
	e := r3.Norm(evec)

	o := Orbit{E: e, H: hn}
	o.A = -mu / (v2 - 2*mu/d)
	if hn > 0 {
		o.Inc = math.Acos(clamp(h.Z/hn, -1, 1))
	}

	node := r3.Vec{X: -h.Y, Y: h.X}
	nn := r3.Norm(node)
	if nn > orbitTiny*hn {
		o.Node = math.Atan2(node.Y, node.X)
	} else {
		node = r3.Vec{X: 1}
	}

	// signed angles measured in the orbital plane
	angle := func(from, to r3.Vec) float64 {
		return math.Atan2(r3.Dot(r3.Cross(from, to), h)/hn, r3.Dot(from, to))
	}

	if e > orbitTiny {
		if hn > 0 {
			o.ArgPeri = angle(node, evec)
			o.F = angle(evec, r)
		} else {
			o.ArgPeri = math.Atan2(evec.Y, evec.X)
		}
	} else if hn > 0 {
		o.F = angle(node, r)
	}

	if h.Z >= 0 {
		o.Pomega = o.Node + o.ArgPeri
	} else {
		o.Pomega = o.Node - o.ArgPeri
	}

	switch {
	case e < 1:
		ea := 2 * math.Atan(math.Sqrt((1-e)/(1+e))*math.Tan(o.F/2))
		o.M = ea - e*math.Sin(ea)
		o.P = twoPi * math.Sqrt(o.A*o.A*o.A/mu)
	case e > 1:
		fa := 2 * math.Atanh(math.Sqrt((e-1)/(e+1))*math.Tan(o.F/2))
		o.M = e*math.Sinh(fa) - fa
		o.P = math.Inf(1)
	default:
		o.P = math.Inf(1)
	}

	o.Node = wrap(o.Node)
	o.ArgPeri = wrap(o.ArgPeri)
	o.Pomega = wrap(o.Pomega)
	o.F = wrap(o.F)
	if e < 1 {
		o.M = wrap(o.M)
	}
	return o, nil
}

// FromOrbit places a particle of mass m on an elliptic orbit about primary.
func FromOrbit(G float64, primary Particle, m float64, el OrbitElements) (Particle, error) {
	if el.E < 0 || el.E >= 1 {
		return Particle{}, fmt.Errorf("%w: eccentricity %g outside [0, 1)", ErrInvalidOrbit, el.E)
	}
	if el.A <= 0 {
		return Particle{}, fmt.Errorf("%w: semi-major axis %g must be positive", ErrInvalidOrbit, el.A)
	}
	mu := G * (m + primary.Mass)
	if mu <= 0 {
		return Particle{}, fmt.Errorf("%w: no mass to orbit", ErrInvalidOrbit)
	}

	p := el.A * (1 - el.E*el.E)
	r := p / (1 + el.E*math.Cos(el.F))
	v0 := math.Sqrt(mu / p)

	cO, sO := math.Cos(el.Node), math.Sin(el.Node)
	co, so := math.Cos(el.ArgPeri), math.Sin(el.ArgPeri)
	cf, sf := math.Cos(el.F), math.Sin(el.F)
	ci, si := math.Cos(el.Inc), math.Sin(el.Inc)
	cof, sof := math.Cos(el.ArgPeri+el.F), math.Sin(el.ArgPeri+el.F)

	pos := r3.Vec{
		X: r * (cO*cof - sO*sof*ci),
		Y: r * (sO*cof + cO*sof*ci),
		Z: r * sof * si,
	}
	vel := r3.Vec{
		X: v0 * ((el.E+cf)*(-ci*co*sO-cO*so) - sf*(co*cO-ci*so*sO)),
		Y: v0 * ((el.E+cf)*(ci*co*cO-sO*so) - sf*(co*sO+ci*so*cO)),
		Z: v0 * ((el.E+cf)*co*si - sf*si*so),
	}

	return Particle{
		Mass: m,
		Pos:  r3.Add(primary.Pos, pos),
		Vel:  r3.Add(primary.Vel, vel),
	}, nil
}

func wrap(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
