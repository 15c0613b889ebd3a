package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/mpmsim/internal/particle"
)

const (
	metadataFile = "metadata.json"
	historyFile  = "history.csv"
	snapshotDir  = "snapshots"
)

// History values are rounded to ten significant digits.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

var historyHeader = []string{"step", "time", "kinetic_energy", "total_mass", "max_speed"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Scheme      string             `json:"scheme"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	OutputEvery int                `json:"output_every"`
	Particles   int                `json:"particles"`
	Nodes       int                `json:"nodes"`
	Elements    int                `json:"elements"`
	DomainMin   [2]float64         `json:"domain_min"`
	DomainMax   [2]float64         `json:"domain_max"`
	StepsTaken  int                `json:"steps_taken"`
	Time        float64            `json:"time"`
	MassDrift   float64            `json:"mass_drift"`
	Elapsed     float64            `json:"elapsed_seconds"`
	Snapshots   []int              `json:"snapshots"`
	Metrics     map[string]float64 `json:"metrics"`
	Error       string             `json:"error,omitempty"`
}

// HistoryRow is one line of history.csv.
type HistoryRow struct {
	Step          int
	Time          float64
	KineticEnergy float64
	TotalMass     float64
	MaxSpeed      float64
}

// Run is an open run directory. It writes particle snapshots for the
// solver and records a history row after every step.
type Run struct {
	ID  string
	dir string

	historyFile *os.File
	history     *csv.Writer
	snapshots   []int
	err         error
}

// Create opens a new run directory named after the run and its start time.
func (s *Store) Create(name string) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	base := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	runID := base
	for i := 1; ; i++ {
		err := os.Mkdir(filepath.Join(s.baseDir, runID), 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}

	dir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(filepath.Join(dir, snapshotDir), 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, historyFile))
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(historyHeader); err != nil {
		f.Close()
		return nil, err
	}
	return &Run{ID: runID, dir: dir, historyFile: f, history: w}, nil
}

func snapshotName(step int) string {
	return fmt.Sprintf("step_%06d.csv", step)
}

func (r *Run) WriteSnapshot(step int, t float64, points []particle.Snapshot) error {
	f, err := os.Create(filepath.Join(r.dir, snapshotDir, snapshotName(step)))
	if err != nil {
		return err
	}
	if err := WriteSnapshotCSV(f, points); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	r.snapshots = append(r.snapshots, step)
	return nil
}

// OnStep appends a history row. The first write error is kept and reported
// by Finish.
func (r *Run) OnStep(step int, t float64, points *particle.Set) {
	if r.err != nil {
		return
	}
	r.err = r.history.Write([]string{
		strconv.Itoa(step),
		formatFloat(t),
		formatFloat(points.KineticEnergy()),
		formatFloat(points.TotalMass()),
		formatFloat(points.MaxSpeed()),
	})
}

// Finish closes the history and writes the metadata. Snapshots written
// through the run are recorded in meta.
func (r *Run) Finish(meta RunMetadata) error {
	r.history.Flush()
	if err := r.history.Error(); err != nil && r.err == nil {
		r.err = err
	}
	if err := r.historyFile.Close(); err != nil && r.err == nil {
		r.err = err
	}
	if r.err != nil {
		return r.err
	}

	meta.ID = r.ID
	meta.Snapshots = r.snapshots
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	f, err := os.Create(filepath.Join(r.dir, metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadHistory(runID string) ([]HistoryRow, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, historyFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(historyHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []HistoryRow{}, nil
	}

	rows := make([]HistoryRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i+1, err)
		}
		var v [4]float64
		for j := range v {
			if v[j], err = strconv.ParseFloat(rec[j+1], 64); err != nil {
				return nil, fmt.Errorf("history row %d: %w", i+1, err)
			}
		}
		rows = append(rows, HistoryRow{Step: step, Time: v[0], KineticEnergy: v[1], TotalMass: v[2], MaxSpeed: v[3]})
	}
	return rows, nil
}

// Snapshots lists the stored snapshot steps in ascending order.
func (s *Store) Snapshots(runID string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, runID, snapshotDir))
	if err != nil {
		return nil, err
	}
	steps := make([]int, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "step_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		step, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "step_"), ".csv"))
		if err != nil {
			continue
		}
		steps = append(steps, step)
	}
	sort.Ints(steps)
	return steps, nil
}

// LoadSnapshot reads the snapshot at step. A negative step selects the last
// one.
func (s *Store) LoadSnapshot(runID string, step int) ([]particle.Snapshot, int, error) {
	if step < 0 {
		steps, err := s.Snapshots(runID)
		if err != nil {
			return nil, 0, err
		}
		if len(steps) == 0 {
			return nil, 0, fmt.Errorf("run %s has no snapshots", runID)
		}
		step = steps[len(steps)-1]
	}
	f, err := os.Open(filepath.Join(s.baseDir, runID, snapshotDir, snapshotName(step)))
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	points, err := ReadSnapshotCSV(f)
	if err != nil {
		return nil, 0, fmt.Errorf("run %s step %d: %w", runID, step, err)
	}
	return points, step, nil
}
