package units

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the whitelist of unit systems a simulation may declare.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	allowed map[System]Constants
}

func NewRegistry(systems ...System) (*Registry, error) {
	r := &Registry{allowed: make(map[System]Constants, len(systems))}
	for _, s := range systems {
		if err := r.Allow(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the shared registry of standard systems.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(
			Default,
			System{Length: "au", Mass: "msun", Time: "day"},
			System{Length: "au", Mass: "msun", Time: "yr"},
			System{Length: "m", Mass: "kg", Time: "s"},
			System{Length: "cm", Mass: "g", Time: "s"},
		)
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Allow adds s to the whitelist.
func (r *Registry) Allow(s System) error {
	c, err := Derive(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.allowed[s] = c
	r.mu.Unlock()
	return nil
}

func (r *Registry) Allowed(s System) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.allowed[s]
	return ok
}

// Constants returns G and c for a whitelisted system.
func (r *Registry) Constants(s System) (Constants, error) {
	r.mu.RLock()
	c, ok := r.allowed[s]
	r.mu.RUnlock()
	if !ok {
		return Constants{}, fmt.Errorf("%w: %s", ErrUnrecognized, s)
	}
	return c, nil
}

// Resolve parses desc and looks it up.
func (r *Registry) Resolve(desc string) (System, Constants, error) {
	s, err := ParseSystem(desc)
	if err != nil {
		return System{}, Constants{}, err
	}
	c, err := r.Constants(s)
	if err != nil {
		return System{}, Constants{}, err
	}
	return s, c, nil
}

func (r *Registry) Systems() []System {
	r.mu.RLock()
	out := make([]System, 0, len(r.allowed))
	for s := range r.allowed {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
