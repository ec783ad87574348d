package gr_test

import (
	"math"

	. "github.com/onsi/gomega"

	"github.com/san-kum/pnsim/internal/gr"
	"github.com/san-kum/pnsim/internal/nbody"
)

const (
	mercuryMass = 1.66013e-07
	mercuryA    = 0.387098
	mercuryE    = 0.205630
)

// mercury is the Sun and Mercury at pericenter in AU/Msun/yr2pi.
func mercury() nbody.Particles {
	sun := nbody.Particle{Name: "sun", Mass: 1}
	p, err := nbody.FromOrbit(1, sun, mercuryMass, nbody.OrbitElements{A: mercuryA, E: mercuryE})
	Expect(err).NotTo(HaveOccurred())
	p.Name = "mercury"
	return nbody.Particles{sun, p}
}

func mercuryPeriod() float64 {
	return 2 * math.Pi * math.Sqrt(mercuryA*mercuryA*mercuryA/(1+mercuryMass))
}

// innerPlanets adds Venus and Earth on inclined orbits.
func innerPlanets() nbody.Particles {
	ps := mercury()
	for _, pl := range []struct {
		name string
		m    float64
		el   nbody.OrbitElements
	}{
		{"venus", 2.4478383e-06, nbody.OrbitElements{A: 0.723332, E: 0.006772, Inc: 0.0592, Node: 1.338, ArgPeri: 0.958, F: 1.2}},
		{"earth", 3.00348959632e-06, nbody.OrbitElements{A: 1.000001, E: 0.016709, Inc: 0.0001, Node: 0.1, ArgPeri: 1.9933, F: 4.0}},
	} {
		p, err := nbody.FromOrbit(1, ps[0], pl.m, pl.el)
		Expect(err).NotTo(HaveOccurred())
		p.Name = pl.name
		ps = append(ps, p)
	}
	ps.MoveToCOM()
	return ps
}

func newCorrector(v gr.Variant) *gr.Corrector {
	c, err := gr.New(gr.Config{Variant: v, G: 1, C: gr.DefaultC})
	Expect(err).NotTo(HaveOccurred())
	return c
}

// comparable is a source of unit mass and a companion of mass m on an
// orbit with a = 1, e = 0.3, moved to the centre-of-mass frame.
func comparable(m float64) nbody.Particles {
	src := nbody.Particle{Name: "primary", Mass: 1}
	p, err := nbody.FromOrbit(1, src, m, nbody.OrbitElements{A: 1, E: 0.3})
	Expect(err).NotTo(HaveOccurred())
	p.Name = "companion"
	ps := nbody.Particles{src, p}
	ps.MoveToCOM()
	return ps
}

func comparablePeriod(m float64) float64 {
	return 2 * math.Pi / math.Sqrt(1+m)
}

// twoPlanets is a unit-mass star with two Jupiter-mass planets at a = 1
// and a = 1.6.
func twoPlanets() nbody.Particles {
	star := nbody.Particle{Name: "star", Mass: 1}
	ps := nbody.Particles{star}
	for _, pl := range []struct {
		name string
		el   nbody.OrbitElements
	}{
		{"inner", nbody.OrbitElements{A: 1, E: 0.1}},
		{"outer", nbody.OrbitElements{A: 1.6, E: 0.05, ArgPeri: 2}},
	} {
		p, err := nbody.FromOrbit(1, star, 1e-3, pl.el)
		Expect(err).NotTo(HaveOccurred())
		p.Name = pl.name
		ps = append(ps, p)
	}
	ps.MoveToCOM()
	return ps
}

func newCorrectorAt(v gr.Variant, c float64) *gr.Corrector {
	corr, err := gr.New(gr.Config{Variant: v, G: 1, C: c})
	Expect(err).NotTo(HaveOccurred())
	return corr
}
