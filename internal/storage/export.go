package storage

import (
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/pnsim/internal/dynamo"
)

// number encodes non-finite values as null.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

type ExportBody struct {
	Name string      `json:"name"`
	Pos  [][3]number `json:"pos"`
	Vel  [][3]number `json:"vel"`
}

type ExportData struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Units       string            `json:"units,omitempty"`
	G           float64           `json:"g"`
	C           float64           `json:"c,omitempty"`
	Integrator  string            `json:"integrator"`
	Effects     []string          `json:"effects"`
	Dt          float64           `json:"dt"`
	Duration    float64           `json:"duration"`
	Steps       int               `json:"steps"`
	EnergyDrift number            `json:"energy_drift"`
	Times       []number          `json:"times"`
	Energies    []number          `json:"energies,omitempty"`
	Bodies      []ExportBody      `json:"bodies"`
	Metrics     map[string]number `json:"metrics"`
}

// TrajectoryFromResult labels the packed states of res with particle names.
func TrajectoryFromResult(particles []string, res *dynamo.Result) *Trajectory {
	return &Trajectory{
		Particles: particles,
		Times:     res.Times,
		Energies:  res.Energies,
		States:    res.States,
	}
}

// ExportJSON writes a run as indented JSON with one position and velocity
// series per body.
func ExportJSON(w io.Writer, meta *RunMetadata, traj *Trajectory) error {
	n := len(traj.Particles)
	data := ExportData{
		ID:          meta.ID,
		Name:        meta.Name,
		Units:       meta.Units,
		G:           meta.G,
		C:           meta.C,
		Integrator:  meta.Integrator,
		Effects:     meta.Effects,
		Dt:          meta.Dt,
		Duration:    meta.Duration,
		Steps:       meta.StepsTaken,
		EnergyDrift: number(meta.EnergyDrift),
		Times:       numbers(traj.Times),
		Energies:    numbers(traj.Energies),
		Bodies:      make([]ExportBody, n),
		Metrics:     make(map[string]number, len(meta.Metrics)),
	}
	for k, v := range meta.Metrics {
		data.Metrics[k] = number(v)
	}

	for p, name := range traj.Particles {
		body := ExportBody{
			Name: name,
			Pos:  make([][3]number, 0, len(traj.States)),
			Vel:  make([][3]number, 0, len(traj.States)),
		}
		for _, x := range traj.States {
			if len(x) != 6*n {
				return dynamo.ErrDimensionMismatch
			}
			body.Pos = append(body.Pos, [3]number{number(x[3*p]), number(x[3*p+1]), number(x[3*p+2])})
			v := x[3*n+3*p:]
			body.Vel = append(body.Vel, [3]number{number(v[0]), number(v[1]), number(v[2])})
		}
		data.Bodies[p] = body
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func numbers(vs []float64) []number {
	if vs == nil {
		return nil
	}
	out := make([]number, len(vs))
	for i, v := range vs {
		out[i] = number(v)
	}
	return out
}
