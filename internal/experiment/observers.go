package experiment

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/pnsim/internal/dynamo"
)

const (
	// divergenceBound aborts runs whose coordinates or velocities leave any
	// physically meaningful range.
	divergenceBound = 1e12
	progressReports = 10
)

// progress logs the position of a run at debug level.
type progress struct {
	logger   *slog.Logger
	duration float64
	every    int
	calls    int
}

func newProgress(logger *slog.Logger, cfg dynamo.Config) *progress {
	every := int(math.Round(cfg.Duration/cfg.Dt)) / progressReports
	if every < 1 {
		every = 1
	}
	return &progress{logger: logger, duration: cfg.Duration, every: every}
}

func (p *progress) OnStep(_ dynamo.State, t float64) error {
	p.calls++
	if p.calls%p.every == 0 {
		p.logger.Debug("progress", "t", t, "fraction", t/p.duration)
	}
	return nil
}

// divergence stops a run whose state is no longer finite or has escaped
// the bound.
type divergence struct {
	bound float64
}

func (d divergence) OnStep(x dynamo.State, t float64) error {
	for i, v := range x {
		if math.IsNaN(v) || math.Abs(v) > d.bound {
			return fmt.Errorf("%w: component %d is %g at t=%g", dynamo.ErrUnstable, i, v, t)
		}
	}
	return nil
}
