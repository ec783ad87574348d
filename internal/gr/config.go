package gr

import (
	"fmt"
	"math"

	"github.com/san-kum/pnsim/internal/units"
)

// constantTolerance is the relative slack when comparing a supplied G or c
// with a unit system. The Julian-year and Gaussian definitions of G ≈ 1
// differ by about 4e-5.
const constantTolerance = 1e-4

var defaultConstants = units.MustDerive(units.Default)

// DefaultC is the speed of light in AU per yr/2π, the unit system in
// which G = 1 for solar masses.
var DefaultC = defaultConstants.C

type Config struct {
	Variant Variant
	G       float64
	// C is the speed of light in simulation units. Zero derives it from
	// Units.
	C float64
	// Units declares the host unit system, e.g. "au,msun,yr2pi".
	Units string
	// SourceIndex designates the source of SingleSource and Potential
	// when no particle carries RoleSource.
	SourceIndex int
	// Registry whitelists unit systems. Nil means units.DefaultRegistry.
	Registry *units.Registry
}

// DefaultConfig is the single-source variant in AU/Msun/yr2pi.
func DefaultConfig() Config {
	return Config{Variant: SingleSource, G: 1, C: DefaultC}
}

// resolve validates cfg and returns the speed of light to use.
func (cfg Config) resolve() (float64, error) {
	if !cfg.Variant.valid() {
		return 0, fmt.Errorf("%w: unknown variant %d", ErrInvalidConfiguration, int(cfg.Variant))
	}
	if !(cfg.G > 0) || math.IsInf(cfg.G, 0) {
		return 0, fmt.Errorf("%w: G must be positive and finite, got %g", ErrInvalidConfiguration, cfg.G)
	}
	if cfg.SourceIndex < 0 {
		return 0, fmt.Errorf("%w: negative source index %d", ErrInvalidConfiguration, cfg.SourceIndex)
	}
	if cfg.Units != "" {
		return cfg.resolveUnits()
	}

	if !(cfg.C > 0) || math.IsInf(cfg.C, 0) {
		return 0, fmt.Errorf("%w: c must be positive and finite, got %g", ErrInvalidConfiguration, cfg.C)
	}
	if matches(cfg.C, DefaultC) && !matches(cfg.G, defaultConstants.G) {
		return 0, fmt.Errorf("%w: default c belongs to %s (G=%g) but G=%g; set c or units",
			ErrInvalidConfiguration, units.Default, defaultConstants.G, cfg.G)
	}
	return cfg.C, nil
}

func (cfg Config) resolveUnits() (float64, error) {
	reg := cfg.Registry
	if reg == nil {
		reg = units.DefaultRegistry()
	}
	sys, consts, err := reg.Resolve(cfg.Units)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if !matches(cfg.G, consts.G) {
		return 0, fmt.Errorf("%w: G=%g does not match %s (G=%g)", ErrInvalidConfiguration, cfg.G, sys, consts.G)
	}
	if cfg.C == 0 {
		return consts.C, nil
	}
	if !matches(cfg.C, consts.C) {
		return 0, fmt.Errorf("%w: c=%g does not match %s (c=%g)", ErrInvalidConfiguration, cfg.C, sys, consts.C)
	}
	return cfg.C, nil
}

func matches(a, b float64) bool {
	return math.Abs(a-b) <= constantTolerance*math.Max(math.Abs(a), math.Abs(b))
}
