package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/storage"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()

	block := config.GetPreset("elastic_block")
	block.Simulation.Steps = 4
	block.Simulation.OutputEvery = 2
	if err := config.Save(filepath.Join(dir, "block.yaml"), block); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "scenario.yaml"), `name: smoke
description: two short runs
runs:
  - preset: free_fall
    params:
      steps: 5
      output_every: 5
    save_as: drop
  - config: block.yaml
`)

	scenario, err := LoadScenario(filepath.Join(dir, "scenario.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if scenario.Name != "smoke" || len(scenario.Runs) != 2 {
		t.Fatalf("unexpected scenario %+v", scenario)
	}

	st := storage.New(filepath.Join(dir, "data"))
	runner := &Runner{Store: st, Logger: quiet()}
	outcomes, err := runner.RunScenario(context.Background(), scenario)
	if err != nil {
		t.Fatalf("scenario failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Name != "drop" || outcomes[0].Result.StepsTaken != 5 {
		t.Errorf("first run: %+v", outcomes[0])
	}
	if outcomes[1].Result.StepsTaken != 4 {
		t.Errorf("second run took %d steps", outcomes[1].Result.StepsTaken)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 stored runs, got %d", len(runs))
	}
	meta, err := st.Load(outcomes[0].RunID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.StepsTaken != 5 || meta.Particles != 16 {
		t.Errorf("stored metadata %+v", meta)
	}
	steps, err := st.Snapshots(outcomes[0].RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 || steps[0] != 0 || steps[1] != 5 {
		t.Errorf("snapshots %v", steps)
	}
}

func TestScenarioValidate(t *testing.T) {
	tests := []struct {
		name string
		runs []ScenarioRun
	}{
		{"empty", nil},
		{"both sources", []ScenarioRun{{Preset: "free_fall", Config: "x.yaml"}}},
		{"no source", []ScenarioRun{{SaveAs: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scenario{Runs: tt.runs}
			if err := s.Validate(); !errors.Is(err, ErrInvalidScenario) {
				t.Errorf("expected ErrInvalidScenario, got %v", err)
			}
		})
	}
}

func TestScenarioRejectsUnknownParam(t *testing.T) {
	s := &Scenario{Runs: []ScenarioRun{{Preset: "free_fall", Params: map[string]float64{"spin": 1}}}}
	runner := &Runner{Logger: quiet()}
	_, err := runner.RunScenario(context.Background(), s)
	if !errors.Is(err, config.ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
}

func TestSweepValues(t *testing.T) {
	got := ParameterSweep{Min: 1, Max: 2, Points: 3}.Values()
	want := []float64{1, 1.5, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: got %g, want %g", i, got[i], want[i])
		}
	}
	if v := (ParameterSweep{Min: 4, Max: 9, Points: 1}).Values(); len(v) != 1 || v[0] != 4 {
		t.Errorf("single point sweep %v", v)
	}
}

func TestRunSweep(t *testing.T) {
	base := config.GetPreset("free_fall")
	base.Simulation.Steps = 5

	runner := &Runner{Logger: quiet()}
	results, err := runner.RunSweep(context.Background(), base, "", ParameterSweep{
		Param: "dt", Min: 1e-4, Max: 3e-4, Points: 3,
	})
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Stable || r.Err != nil {
			t.Errorf("dt=%g unstable: %v", r.Value, r.Err)
		}
		if r.StepsTaken != 5 {
			t.Errorf("dt=%g took %d steps", r.Value, r.StepsTaken)
		}
	}
	if base.Simulation.Dt != 1e-3 {
		t.Error("sweep modified the base config")
	}

	stable, unstable := Stats(results)
	if stable != 3 || unstable != 0 {
		t.Errorf("stats %d/%d", stable, unstable)
	}
}

func TestRunSweepRecordsFailures(t *testing.T) {
	base := config.GetPreset("free_fall")
	base.Simulation.Steps = 5

	// one step of this size carries the block below the mesh
	runner := &Runner{Logger: quiet()}
	results, err := runner.RunSweep(context.Background(), base, "", ParameterSweep{
		Param: "dt", Min: 0.5, Max: 0.5, Points: 1,
	})
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if results[0].Stable {
		t.Error("expected an unstable point")
	}
	if !errors.Is(results[0].Err, grid.ErrOutsideDomain) {
		t.Errorf("expected ErrOutsideDomain, got %v", results[0].Err)
	}
}

func TestRunSweepInvalid(t *testing.T) {
	runner := &Runner{Logger: quiet()}
	_, err := runner.RunSweep(context.Background(), config.GetPreset("free_fall"), "", ParameterSweep{Param: "dt", Points: 0})
	if !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("expected ErrInvalidScenario, got %v", err)
	}
}
