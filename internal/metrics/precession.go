package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pnsim/internal/dynamo"
	"github.com/san-kum/pnsim/internal/nbody"
)

const (
	arcsecPerRadian = 180 / math.Pi * 3600
	centurySeconds  = 100 * 31557600.0
)

// ArcsecPerCentury converts radians per time unit into arcseconds per
// Julian century, given the length of the time unit in seconds.
func ArcsecPerCentury(timeUnitSeconds float64) float64 {
	return arcsecPerRadian * centurySeconds / timeUnitSeconds
}

// Precession follows the longitude of pericenter ϖ of one body about a
// primary. Value is the least-squares slope of the unwrapped ϖ(t), times
// scale.
type Precession struct {
	name    string
	sys     *nbody.System
	body    int
	primary int
	scale   float64

	prev   float64
	offset float64
	times  []float64
	pomega []float64
	err    error
}

func NewPrecession(sys *nbody.System, body, primary int, scale float64) *Precession {
	return &Precession{
		name:    fmt.Sprintf("precession_%d", body),
		sys:     sys,
		body:    body,
		primary: primary,
		scale:   scale,
	}
}

// Named overrides the metric name.
func (p *Precession) Named(name string) *Precession {
	p.name = name
	return p
}

func (p *Precession) Name() string { return p.name }

func (p *Precession) Observe(x dynamo.State, t float64) {
	ps, err := p.sys.Unpack(x)
	if err == nil {
		var o nbody.Orbit
		o, err = nbody.OrbitOf(p.sys.G, ps[p.body], ps[p.primary])
		if err == nil {
			p.add(o.Pomega, t)
			return
		}
	}
	if p.err == nil {
		p.err = err
	}
}

func (p *Precession) add(pomega, t float64) {
	if len(p.pomega) > 0 {
		switch d := pomega - p.prev; {
		case d > math.Pi:
			p.offset -= 2 * math.Pi
		case d < -math.Pi:
			p.offset += 2 * math.Pi
		}
	}
	p.prev = pomega
	p.times = append(p.times, t)
	p.pomega = append(p.pomega, pomega+p.offset)
}

// Value is the secular rate of ϖ in scaled units.
func (p *Precession) Value() float64 {
	n := len(p.times)
	if n < 2 || p.times[0] == p.times[n-1] {
		return 0
	}
	_, slope := stat.LinearRegression(p.times, p.pomega, nil, false)
	return slope * p.scale
}

// Total is the accumulated change of ϖ in radians.
func (p *Precession) Total() float64 {
	if len(p.pomega) == 0 {
		return 0
	}
	return p.pomega[len(p.pomega)-1] - p.pomega[0]
}

// Err returns the first failure to compute an orbit.
func (p *Precession) Err() error { return p.err }

func (p *Precession) Reset() {
	*p = Precession{name: p.name, sys: p.sys, body: p.body, primary: p.primary, scale: p.scale}
}
