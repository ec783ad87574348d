package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pnsim/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int { return 2 }

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	return dynamo.State{x[1], -x[0]}, nil
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

var errDerive = errors.New("derive failed")

type broken struct{}

func (b *broken) StateDim() int { return 2 }
func (b *broken) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	return nil, errDerive
}

func run(t *testing.T, integ dynamo.Integrator, x0 dynamo.State, dt float64, steps int) dynamo.State {
	t.Helper()
	dyn := &harmonicOscillator{}
	x := x0.Clone()
	for i := 0; i < steps; i++ {
		var err error
		x, err = integ.Step(dyn, x, float64(i)*dt, dt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return x
}

func TestRK4Accuracy(t *testing.T) {
	dt := 0.01
	steps := 100
	x := run(t, NewRK4(), dynamo.State{1.0, 0.0}, dt, steps)

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestOrderOfAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		integ func() dynamo.Integrator
		order float64
	}{
		{"euler", func() dynamo.Integrator { return NewEuler() }, 1},
		{"rk2", func() dynamo.Integrator { return NewRK2() }, 2},
		{"rk4", func() dynamo.Integrator { return NewRK4() }, 4},
		{"verlet", func() dynamo.Integrator { return NewVerlet() }, 2},
		{"leapfrog", func() dynamo.Integrator { return NewLeapfrog() }, 2},
		{"implicit_midpoint", func() dynamo.Integrator { return NewImplicitMidpoint() }, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errAt := func(dt float64) float64 {
				steps := int(math.Round(1.0 / dt))
				x := run(t, tt.integ(), dynamo.State{1, 0}, dt, steps)
				return math.Hypot(x[0]-math.Cos(1), x[1]+math.Sin(1))
			}
			coarse := errAt(0.02)
			fine := errAt(0.01)
			observed := math.Log2(coarse / fine)
			if math.Abs(observed-tt.order) > 0.3 {
				t.Errorf("observed order %.2f, want %.0f", observed, tt.order)
			}
		})
	}
}

func TestSymplecticEnergyBounded(t *testing.T) {
	for _, name := range []string{"verlet", "leapfrog", "implicit_midpoint"} {
		t.Run(name, func(t *testing.T) {
			integ, err := Lookup(name)
			if err != nil {
				t.Fatal(err)
			}
			dyn := &harmonicOscillator{}
			x := dynamo.State{1, 0}
			e0 := dyn.Energy(x)
			maxDrift := 0.0
			for i := 0; i < 100000; i++ {
				x, err = integ.Step(dyn, x, 0, 0.02)
				if err != nil {
					t.Fatal(err)
				}
				maxDrift = math.Max(maxDrift, math.Abs(dyn.Energy(x)-e0)/e0)
			}
			if maxDrift > 1e-3 {
				t.Errorf("%s energy error grew to %e", name, maxDrift)
			}
		})
	}
}

func TestEulerEnergyGrows(t *testing.T) {
	dyn := &harmonicOscillator{}
	x := run(t, NewEuler(), dynamo.State{1, 0}, 0.01, 1000)
	if dyn.Energy(x) <= 0.5 {
		t.Errorf("explicit Euler should gain energy, got %f", dyn.Energy(x))
	}
}

func TestStepPropagatesErrors(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			integ, err := Lookup(name)
			if err != nil {
				t.Fatal(err)
			}
			_, err = integ.Step(&broken{}, dynamo.State{1, 0}, 0, 0.1)
			if !errors.Is(err, errDerive) {
				t.Errorf("expected derive error, got %v", err)
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("whfast"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}

func TestImplicitMidpointConverges(t *testing.T) {
	m := NewImplicitMidpoint()
	_, err := m.Step(&harmonicOscillator{}, dynamo.State{1, 0}, 0, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Converged() {
		t.Errorf("expected convergence, used %d iterations", m.Iterations())
	}
	if m.Iterations() < 2 {
		t.Errorf("expected at least two iterations, got %d", m.Iterations())
	}
}
