package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pnsim/internal/config"
	"github.com/san-kum/pnsim/internal/gr"
	"github.com/san-kum/pnsim/internal/nbody"
)

// Constants are the physical constants an effect is built with.
type Constants struct {
	G     float64
	C     float64
	Units string
}

type effectFactory func(ec config.EffectConfig, k Constants) (nbody.Effect, error)

// Registry maps effect names from configuration files to constructors.
type Registry struct {
	effects map[string]effectFactory
}

func NewRegistry() *Registry {
	r := &Registry{effects: make(map[string]effectFactory)}
	for _, v := range gr.Variants() {
		r.effects[v.String()] = correctorFactory(v)
	}
	return r
}

func correctorFactory(v gr.Variant) effectFactory {
	return func(ec config.EffectConfig, k Constants) (nbody.Effect, error) {
		return gr.New(gr.Config{
			Variant:     v,
			G:           k.G,
			C:           k.C,
			Units:       k.Units,
			SourceIndex: ec.SourceIndex,
		})
	}
}

func (r *Registry) GetEffect(ec config.EffectConfig, k Constants) (nbody.Effect, error) {
	fn, ok := r.effects[ec.Name]
	if !ok {
		return nil, fmt.Errorf("unknown effect: %s", ec.Name)
	}
	return fn(ec, k)
}

func (r *Registry) ListEffects() []string {
	names := make([]string, 0, len(r.effects))
	for name := range r.effects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
