// Package storage keeps finished runs on disk: one directory per run with
// metadata.json and states.csv, plus a sqlite index for listing.
package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/pnsim/internal/dynamo"
)

var ErrNotFound = errors.New("storage: run not found")

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._@-]+`)

type Store struct {
	baseDir string
	index   *Index
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the data directory and opens the run index.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	idx, err := OpenIndex(filepath.Join(s.baseDir, "runs.db"))
	if err != nil {
		return err
	}
	s.index = idx
	return nil
}

func (s *Store) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Units       string             `json:"units,omitempty"`
	G           float64            `json:"g"`
	C           float64            `json:"c,omitempty"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Integrator  string             `json:"integrator"`
	Effects     []string           `json:"effects"`
	Particles   []string           `json:"particles"`
	Masses      []float64          `json:"masses,omitempty"`
	Primary     int                `json:"primary"`
	RateUnit    string             `json:"rate_unit,omitempty"`
	StepsTaken  int                `json:"steps_taken"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes result under a new run id and indexes it. meta.Particles
// must name the particles of the packed states. A failed save leaves no
// run directory behind.
func (s *Store) Save(ctx context.Context, meta RunMetadata, result *dynamo.Result) (string, error) {
	now := time.Now().UTC()
	meta.ID = newRunID(meta.Name, now)
	meta.Timestamp = now
	meta.StepsTaken = result.StepsTaken
	meta.EnergyDrift = result.EnergyDrift
	meta.Metrics = finite(result.Metrics)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := s.write(ctx, runDir, meta, result); err != nil {
		if rmErr := os.RemoveAll(runDir); rmErr != nil {
			return "", errors.Join(err, rmErr)
		}
		return "", err
	}
	return meta.ID, nil
}

func (s *Store) write(ctx context.Context, runDir string, meta RunMetadata, result *dynamo.Result) error {
	if err := writeMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), meta.Particles, result); err != nil {
		return err
	}
	if s.index == nil {
		return nil
	}
	return s.index.Insert(ctx, meta)
}

// newRunID turns a run name into a single path element under the data
// directory, suffixed with the save time.
func newRunID(name string, now time.Time) string {
	base := strings.TrimLeft(unsafeIDChars.ReplaceAllString(name, "_"), ".")
	if base == "" {
		base = "run"
	}
	return fmt.Sprintf("%s_%d", base, now.UnixNano())
}

// runPath resolves a run id, refusing anything that is not a single path
// element.
func (s *Store) runPath(runID, file string) (string, error) {
	if runID == "" || runID == "." || runID == ".." || runID != filepath.Base(runID) {
		return "", fmt.Errorf("%w: invalid run id %q", ErrNotFound, runID)
	}
	return filepath.Join(s.baseDir, runID, file), nil
}

// finite drops values JSON cannot represent.
func finite(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// writeStates emits time, H, then x,y,z,vx,vy,vz per particle.
func writeStates(path string, particles []string, result *dynamo.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"time", "H"}
	for _, name := range particles {
		for _, c := range []string{"x", "y", "z", "vx", "vy", "vz"} {
			header = append(header, name+"_"+c)
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	n := len(particles)
	for i, x := range result.States {
		if len(x) != 6*n {
			return fmt.Errorf("%w: state %d has %d values for %d particles", dynamo.ErrDimensionMismatch, i, len(x), n)
		}
		energy := math.NaN()
		if i < len(result.Energies) {
			energy = result.Energies[i]
		}
		row := []string{format(result.Times[i]), format(energy)}
		for p := 0; p < n; p++ {
			for _, v := range x[3*p : 3*p+3] {
				row = append(row, format(v))
			}
			for _, v := range x[3*n+3*p : 3*n+3*p+3] {
				row = append(row, format(v))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func format(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// List returns indexed runs, newest first.
func (s *Store) List(ctx context.Context) ([]RunMetadata, error) {
	if s.index == nil {
		return nil, fmt.Errorf("storage: not initialised")
	}
	return s.index.List(ctx, 0)
}

// Reindex adds run directories missing from the index and returns how
// many were added.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, fmt.Errorf("storage: not initialised")
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		ok, err := s.index.Has(ctx, meta.ID)
		if err != nil {
			return added, err
		}
		if ok {
			continue
		}
		if err := s.index.Insert(ctx, *meta); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	path, err := s.runPath(runID, "metadata.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Trajectory is a stored run read back in the packed state layout.
type Trajectory struct {
	Particles []string
	Times     []float64
	Energies  []float64
	States    []dynamo.State
}

func (s *Store) LoadStates(runID string) (*Trajectory, error) {
	path, err := s.runPath(runID, "states.csv")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) < 2 || (len(records[0])-2)%6 != 0 {
		return nil, fmt.Errorf("storage: %s has a malformed header", runID)
	}

	n := (len(records[0]) - 2) / 6
	traj := &Trajectory{Particles: make([]string, n)}
	for p := 0; p < n; p++ {
		col := records[0][2+6*p]
		traj.Particles[p] = col[:len(col)-len("_x")]
	}

	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s row %d: %w", runID, i+1, err)
			}
			vals[j] = v
		}
		x := make(dynamo.State, 6*n)
		for p := 0; p < n; p++ {
			copy(x[3*p:3*p+3], vals[2+6*p:5+6*p])
			copy(x[3*n+3*p:3*n+3*p+3], vals[5+6*p:8+6*p])
		}
		traj.Times = append(traj.Times, vals[0])
		traj.Energies = append(traj.Energies, vals[1])
		traj.States = append(traj.States, x)
	}
	return traj, nil
}
