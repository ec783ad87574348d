// Package units derives the gravitational constant and the speed of light
// for a simulation unit system built from named base units.
//
// Solar-system masses are defined through their GM values, so the
// AU/Msun/yr2pi system gives G ≈ 1.
package units

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownUnit  = errors.New("units: unknown base unit")
	ErrUnrecognized = errors.New("units: unit system not recognized")
)

const (
	GravitationalConstantSI = 6.674e-11
	SpeedOfLightSI          = 299792458.0
)

var lengths = map[string]float64{
	"m":  1,
	"cm": 0.01,
	"km": 1000,
	"au": 149597870700,
	"pc": 3.0856775814913673e16,
}

var masses = map[string]float64{
	"kg":       1,
	"g":        1e-3,
	"msun":     1.3271244004193938e20 / GravitationalConstantSI,
	"mearth":   3.986004e14 / GravitationalConstantSI,
	"mjupiter": 1.26686534e17 / GravitationalConstantSI,
}

const julianYear = 31557600.0

var times = map[string]float64{
	"s":     1,
	"hr":    3600,
	"day":   86400,
	"yr":    julianYear,
	"yr2pi": julianYear / (2 * 3.141592653589793),
	"kyr":   1000 * julianYear,
}

// System names one base unit per dimension.
type System struct {
	Length string
	Mass   string
	Time   string
}

// Default is the system in which G = 1 and a year is 2π.
var Default = System{Length: "au", Mass: "msun", Time: "yr2pi"}

func (s System) String() string {
	return s.Length + "," + s.Mass + "," + s.Time
}

// ParseSystem accepts three comma-separated base units in any order,
// e.g. "yr2pi,AU,Msun".
func ParseSystem(desc string) (System, error) {
	parts := strings.Split(desc, ",")
	if len(parts) != 3 {
		return System{}, fmt.Errorf("%w: expected length,mass,time got %q", ErrUnknownUnit, desc)
	}

	var s System
	for _, p := range parts {
		name := strings.ToLower(strings.TrimSpace(p))
		switch {
		case lengths[name] != 0 && s.Length == "":
			s.Length = name
		case masses[name] != 0 && s.Mass == "":
			s.Mass = name
		case times[name] != 0 && s.Time == "":
			s.Time = name
		default:
			return System{}, fmt.Errorf("%w: %q in %q", ErrUnknownUnit, p, desc)
		}
	}
	return s, nil
}

func (s System) Validate() error {
	if _, ok := lengths[s.Length]; !ok {
		return fmt.Errorf("%w: length %q", ErrUnknownUnit, s.Length)
	}
	if _, ok := masses[s.Mass]; !ok {
		return fmt.Errorf("%w: mass %q", ErrUnknownUnit, s.Mass)
	}
	if _, ok := times[s.Time]; !ok {
		return fmt.Errorf("%w: time %q", ErrUnknownUnit, s.Time)
	}
	return nil
}

// TimeSeconds is the length of the system's time unit in seconds.
func (s System) TimeSeconds() (float64, error) {
	sec, ok := times[s.Time]
	if !ok {
		return 0, fmt.Errorf("%w: time %q", ErrUnknownUnit, s.Time)
	}
	return sec, nil
}

// Constants holds G and c expressed in one unit system.
type Constants struct {
	G float64
	C float64
}

// Derive converts the SI constants into s.
func Derive(s System) (Constants, error) {
	if err := s.Validate(); err != nil {
		return Constants{}, err
	}
	l, m, t := lengths[s.Length], masses[s.Mass], times[s.Time]
	return Constants{
		G: GravitationalConstantSI * m * t * t / (l * l * l),
		C: SpeedOfLightSI * t / l,
	}, nil
}

func MustDerive(s System) Constants {
	c, err := Derive(s)
	if err != nil {
		panic(err)
	}
	return c
}
