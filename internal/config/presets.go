package config

import "sort"

const (
	mercuryMass = 1.66013e-07
	venusMass   = 2.4478383e-06
	earthMass   = 3.00348959632e-06
)

func sun() ParticleConfig {
	return ParticleConfig{Name: "sun", M: 1}
}

func mercury() ParticleConfig {
	return ParticleConfig{Name: "mercury", M: mercuryMass, Orbit: &OrbitConfig{A: 0.387098, E: 0.205630}}
}

// Presets are in AU, solar masses and yr/2π, where G = 1 and c is the
// package default. One Mercury orbit lasts about 1.513 time units.
var Presets = map[string]*Config{
	"mercury": {
		Name: "mercury", G: 1, Integrator: "rk4", Dt: 7.5e-4, Duration: 151.3, SampleEvery: 200,
		Effects:   []EffectConfig{{Name: "gr"}},
		Particles: []ParticleConfig{sun(), mercury()},
	},
	"mercury_full": {
		Name: "mercury_full", G: 1, Integrator: "rk4", Dt: 7.5e-4, Duration: 151.3, SampleEvery: 200,
		Effects:   []EffectConfig{{Name: "gr_full"}},
		Particles: []ParticleConfig{sun(), mercury()},
	},
	"mercury_potential": {
		Name: "mercury_potential", G: 1, Integrator: "leapfrog", Dt: 2e-4, Duration: 30.26, SampleEvery: 500,
		Effects:   []EffectConfig{{Name: "gr_potential"}},
		Particles: []ParticleConfig{sun(), mercury()},
	},
	"mercury_operator": {
		Name: "mercury_operator", G: 1, Integrator: "leapfrog", Dt: 2e-4, Duration: 30.26, SampleEvery: 500,
		Effects:   []EffectConfig{{Name: "gr", AsOperator: true, OperatorOrder: 2, OperatorIntegrator: "implicit_midpoint"}},
		Particles: []ParticleConfig{sun(), mercury()},
	},
	"newtonian_mercury": {
		Name: "newtonian_mercury", G: 1, Integrator: "rk4", Dt: 7.5e-4, Duration: 151.3, SampleEvery: 200,
		Particles: []ParticleConfig{sun(), mercury()},
	},
	"inner_planets": {
		Name: "inner_planets", G: 1, Integrator: "rk4", Dt: 5e-4, Duration: 62.83, SampleEvery: 500, COM: true,
		Effects: []EffectConfig{{Name: "gr_full"}},
		Particles: []ParticleConfig{
			{Name: "sun", M: 1, GRSource: true},
			mercury(),
			{Name: "venus", M: venusMass, Orbit: &OrbitConfig{A: 0.723332, E: 0.006772, Inc: 0.0592, Node: 1.338, ArgPeri: 0.958}},
			{Name: "earth", M: earthMass, Orbit: &OrbitConfig{A: 1.000001, E: 0.016709, Inc: 0.0001, Node: 0.1, ArgPeri: 1.9933}},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
