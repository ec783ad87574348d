package dynamo

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Run is one named member of an ensemble. Each run needs its own
// Simulator: integrators keep scratch buffers and are not shared.
type Run struct {
	Name string
	Sim  *Simulator
	X0   State
	Cfg  Config
}

type Ensemble struct {
	runs  []Run
	limit int
}

// NewEnsemble creates an ensemble running at most limit simulations at
// once; limit <= 0 means no limit.
func NewEnsemble(limit int) *Ensemble {
	return &Ensemble{limit: limit}
}

func (e *Ensemble) Add(r Run) error {
	for _, existing := range e.runs {
		if existing.Name == r.Name {
			return fmt.Errorf("ensemble: duplicate run name %q", r.Name)
		}
	}
	if r.Sim == nil {
		return fmt.Errorf("ensemble: run %q has no simulator", r.Name)
	}
	e.runs = append(e.runs, r)
	return nil
}

func (e *Ensemble) Len() int { return len(e.runs) }

// Run executes every member concurrently. The first failure cancels the
// remaining runs and is returned.
func (e *Ensemble) Run(ctx context.Context) (map[string]*Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	results := make([]*Result, len(e.runs))
	for i, r := range e.runs {
		g.Go(func() error {
			res, err := r.Sim.Run(ctx, r.X0, r.Cfg)
			if err != nil {
				return fmt.Errorf("run %s: %w", r.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*Result, len(e.runs))
	for i, r := range e.runs {
		out[r.Name] = results[i]
	}
	return out, nil
}
