package viz

import (
	"errors"
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/pnsim/internal/dynamo"
	"github.com/san-kum/pnsim/internal/nbody"
)

const (
	DefaultWidth  = 80
	DefaultHeight = 10
)

var ErrNoData = errors.New("viz: no data to plot")

// HamiltonianError returns |H - H0|/|H0| per sample, or H - H0 when H0 is
// zero. NaN samples stay NaN.
func HamiltonianError(energies []float64) ([]float64, error) {
	h0 := math.NaN()
	for _, h := range energies {
		if !math.IsNaN(h) {
			h0 = h
			break
		}
	}
	if math.IsNaN(h0) {
		return nil, ErrNoData
	}

	out := make([]float64, len(energies))
	for i, h := range energies {
		if h0 == 0 {
			out[i] = h - h0
		} else {
			out[i] = math.Abs(h-h0) / math.Abs(h0)
		}
	}
	return out, nil
}

// PericentreSeries returns the unwrapped longitude of pericentre, in
// radians, of body about primary for each packed state.
func PericentreSeries(g float64, masses []float64, states []dynamo.State, body, primary int) ([]float64, error) {
	n := len(masses)
	if body < 0 || body >= n || primary < 0 || primary >= n || body == primary {
		return nil, fmt.Errorf("viz: body %d about primary %d out of %d particles", body, primary, n)
	}

	out := make([]float64, 0, len(states))
	offset := 0.0
	for i, x := range states {
		if len(x) != 6*n {
			return nil, fmt.Errorf("%w: state %d", dynamo.ErrDimensionMismatch, i)
		}
		o, err := nbody.OrbitOf(g, particleAt(x, n, body, masses), particleAt(x, n, primary, masses))
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		w := o.Pomega + offset
		if len(out) > 0 {
			switch d := w - out[len(out)-1]; {
			case d > math.Pi:
				offset -= 2 * math.Pi
				w -= 2 * math.Pi
			case d < -math.Pi:
				offset += 2 * math.Pi
				w += 2 * math.Pi
			}
		}
		out = append(out, w)
	}
	return out, nil
}

func particleAt(x dynamo.State, n, i int, masses []float64) nbody.Particle {
	return nbody.Particle{
		Mass: masses[i],
		Pos:  r3.Vec{X: x[3*i], Y: x[3*i+1], Z: x[3*i+2]},
		Vel:  r3.Vec{X: x[3*n+3*i], Y: x[3*n+3*i+1], Z: x[3*n+3*i+2]},
	}
}

// Plot draws series as an asciigraph line chart. NaN points are dropped.
func Plot(series []float64, caption string, width, height int) (string, error) {
	data := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			data = append(data, v)
		}
	}
	if len(data) == 0 {
		return "", ErrNoData
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	), nil
}
