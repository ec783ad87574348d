package viz

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/pnsim/internal/dynamo"
)

func TestHamiltonianError(t *testing.T) {
	got, err := HamiltonianError([]float64{-2, -2.002, math.NaN(), -1.998})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0, 1e-3, math.NaN(), 1e-3}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("sample %d: expected NaN, got %v", i, got[i])
			}
			continue
		}
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestHamiltonianErrorAllNaN(t *testing.T) {
	if _, err := HamiltonianError([]float64{math.NaN()}); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

// circular orbit of radius 1 at unit speed, primary at rest
func circularStates(angles ...float64) []dynamo.State {
	states := make([]dynamo.State, len(angles))
	for i, a := range angles {
		states[i] = dynamo.State{
			0, 0, 0, math.Cos(a), math.Sin(a), 0,
			0, 0, 0, -1.2 * math.Sin(a), 1.2 * math.Cos(a), 0,
		}
	}
	return states
}

func TestPericentreSeriesUnwraps(t *testing.T) {
	// an eccentric orbit seen at pericentre with rotating apsides
	var states []dynamo.State
	var want []float64
	for k := 0; k < 5; k++ {
		w := 0.2 + 1.9*float64(k)
		s := circularStates(w)[0]
		states = append(states, s)
		want = append(want, w)
	}

	got, err := PericentreSeries(1, []float64{1, 0}, states, 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPericentreSeriesRejectsBadIndices(t *testing.T) {
	if _, err := PericentreSeries(1, []float64{1, 0}, circularStates(0), 1, 1); err == nil {
		t.Error("expected error for body == primary")
	}
	if _, err := PericentreSeries(1, []float64{1, 0, 0}, circularStates(0), 1, 0); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestPlot(t *testing.T) {
	out, err := Plot([]float64{1, 2, math.NaN(), 3}, "pomega", 20, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "pomega") {
		t.Error("expected caption in plot")
	}
	if _, err := Plot([]float64{math.NaN()}, "empty", 0, 0); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestTable(t *testing.T) {
	out := Table([]string{"effect", "drift"}, [][]string{{"gr", "1e-12"}})
	for _, s := range []string{"effect", "drift", "gr", "1e-12"} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %q in table", s)
		}
	}
}

func TestSparklineChart(t *testing.T) {
	out := SparklineChart([]float64{0, 1, 2, 3}, 4)
	if len([]rune(out)) != 4 {
		t.Errorf("expected 4 runes, got %q", out)
	}
	if got := SparklineChart(nil, 3); got != "───" {
		t.Errorf("expected flat line, got %q", got)
	}
}
