package nbody

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/dynamo"
)

// System integrates the particles of its template under Newtonian gravity
// plus every attached force. Names, masses and roles come from the
// template; positions and velocities travel in the packed state.
type System struct {
	G float64
	// SymplecticHost is set when the host integrator is a splitting scheme
	// that velocity-dependent forces would spoil.
	SymplecticHost bool

	template  Particles
	forces    []Effect
	operators []*operator
	names     map[string]struct{}
	logger    *slog.Logger
}

func NewSystem(G float64, ps Particles, logger *slog.Logger) (*System, error) {
	if G <= 0 {
		return nil, fmt.Errorf("%w: G must be positive, got %g", ErrInvalidSystem, G)
	}
	if len(ps) == 0 {
		return nil, fmt.Errorf("%w: no particles", ErrInvalidSystem)
	}
	for i, p := range ps {
		if p.Mass < 0 {
			return nil, fmt.Errorf("%w: particle %d has negative mass %g", ErrInvalidSystem, i, p.Mass)
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &System{
		G:        G,
		template: ps.Clone(),
		names:    make(map[string]struct{}),
		logger:   logger.With("component", "nbody"),
	}, nil
}

func (s *System) StateDim() int { return 6 * len(s.template) }

// Particles returns a copy of the initial snapshot.
func (s *System) Particles() Particles { return s.template.Clone() }

func (s *System) Len() int { return len(s.template) }

// Pack flattens ps into the state layout.
func Pack(ps Particles) dynamo.State {
	n := len(ps)
	x := make(dynamo.State, 6*n)
	for i, p := range ps {
		x[3*i], x[3*i+1], x[3*i+2] = p.Pos.X, p.Pos.Y, p.Pos.Z
		v := 3*n + 3*i
		x[v], x[v+1], x[v+2] = p.Vel.X, p.Vel.Y, p.Vel.Z
	}
	return x
}

// InitialState packs the template.
func (s *System) InitialState() dynamo.State { return Pack(s.template) }

// Unpack returns a fresh snapshot carrying the coordinates of x.
func (s *System) Unpack(x dynamo.State) (Particles, error) {
	n := len(s.template)
	if len(x) != 6*n {
		return nil, fmt.Errorf("%w: %d particles need %d values, got %d", dynamo.ErrDimensionMismatch, n, 6*n, len(x))
	}
	ps := s.template.Clone()
	for i := range ps {
		ps[i].Pos = r3.Vec{X: x[3*i], Y: x[3*i+1], Z: x[3*i+2]}
		v := 3*n + 3*i
		ps[i].Vel = r3.Vec{X: x[v], Y: x[v+1], Z: x[v+2]}
	}
	return ps, nil
}

// Derive returns a freshly allocated derivative on every call.
func (s *System) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	ps, err := s.Unpack(x)
	if err != nil {
		return nil, err
	}
	acc, err := NewtonianAccelerations(s.G, ps)
	if err != nil {
		return nil, err
	}
	for _, f := range s.forces {
		delta, err := f.Accelerations(ps)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
		for i := range acc {
			acc[i] = r3.Add(acc[i], delta[i])
		}
	}

	n := len(ps)
	dx := make(dynamo.State, 6*n)
	copy(dx, x[3*n:])
	for i, a := range acc {
		v := 3*n + 3*i
		dx[v], dx[v+1], dx[v+2] = a.X, a.Y, a.Z
	}
	return dx, nil
}

// Energy is the Hamiltonian of the first attached effect that conserves
// one, then the diagnostic energy of the first effect that reports one,
// and the Newtonian energy otherwise.
func (s *System) Energy(x dynamo.State) (float64, error) {
	ps, err := s.Unpack(x)
	if err != nil {
		return 0, err
	}
	if c := s.conserved(); c != nil {
		return c.Hamiltonian(ps)
	}
	if d := s.diagnostic(); d != nil {
		return d.DiagnosticEnergy(ps)
	}
	return NewtonianEnergy(s.G, ps)
}

func (s *System) diagnostic() EnergyDiagnostic {
	for _, e := range s.attached() {
		if d, ok := e.(EnergyDiagnostic); ok {
			return d
		}
	}
	return nil
}

func (s *System) conserved() Conserved {
	for _, e := range s.attached() {
		if c, ok := e.(Conserved); ok && c.Conserves() {
			return c
		}
	}
	return nil
}
