package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/pnsim/internal/dynamo"
)

var constructors = map[string]func() dynamo.Integrator{
	"euler":             func() dynamo.Integrator { return NewEuler() },
	"rk2":               func() dynamo.Integrator { return NewRK2() },
	"rk4":               func() dynamo.Integrator { return NewRK4() },
	"rk45":              func() dynamo.Integrator { return NewRK45() },
	"verlet":            func() dynamo.Integrator { return NewVerlet() },
	"leapfrog":          func() dynamo.Integrator { return NewLeapfrog() },
	"implicit_midpoint": func() dynamo.Integrator { return NewImplicitMidpoint() },
}

// Lookup returns a fresh integrator for name.
func Lookup(name string) (dynamo.Integrator, error) {
	fn, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (available: %v)", name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Symplectic reports whether name is a position/velocity splitting scheme
// whose symplecticity is lost under velocity-dependent forces.
func Symplectic(name string) bool {
	return name == "verlet" || name == "leapfrog"
}
