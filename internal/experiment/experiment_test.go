package experiment

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/input"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFreeFallPreset(t *testing.T) {
	cfg := config.GetPreset("free_fall")
	cfg.Simulation.Steps = 20
	cfg.Simulation.Workers = 2

	e := New(cfg, "")
	if err := e.Setup(quiet()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if got := e.Solver().Points().Len(); got != 16 {
		t.Errorf("expected 16 particles, got %d", got)
	}

	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 20 {
		t.Errorf("expected 20 steps, got %d", result.StepsTaken)
	}
	if result.MassDrift > 1e-12 {
		t.Errorf("mass drifted by %g", result.MassDrift)
	}

	want := -9.81 * 20 * cfg.Simulation.Dt
	for _, p := range e.Solver().Points().Points() {
		if math.Abs(p.Velocity[1]-want) > 1e-9 || math.Abs(p.Velocity[0]) > 1e-9 {
			t.Fatalf("particle %d velocity %v, want (0, %g)", p.ID, p.Velocity, want)
		}
	}
	for _, name := range NewRegistry().ListMetrics() {
		if _, ok := result.Metrics[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}
}

func TestBounds(t *testing.T) {
	e := New(config.GetPreset("standing_wave"), "")
	lo, hi, err := e.Bounds()
	if err != nil {
		t.Fatal(err)
	}
	if lo[0] != 0 || lo[1] != 0 || math.Abs(hi[0]-1) > 1e-12 || math.Abs(hi[1]-0.6) > 1e-12 {
		t.Errorf("unexpected bounds %v..%v", lo, hi)
	}
}

func TestHydrostaticBlocks(t *testing.T) {
	e := New(config.GetPreset("standing_wave"), "")
	blocks := e.blocks()
	if blocks[0].Density != 1000 {
		t.Errorf("expected density from the material, got %g", blocks[0].Density)
	}
	if blocks[0].Gravity != 9.81 {
		t.Errorf("expected downward gravity 9.81, got %g", blocks[0].Gravity)
	}
}

func TestDeckRoundTrip(t *testing.T) {
	dir := t.TempDir()
	generated, err := New(config.GetPreset("elastic_block"), "").Deck()
	if err != nil {
		t.Fatal(err)
	}
	if err := input.Write(dir+"/deck", generated); err != nil {
		t.Fatal(err)
	}

	cfg := config.GetPreset("elastic_block")
	cfg.Mesh = config.MeshConfig{Deck: "deck"}
	cfg.Particles = config.ParticlesConfig{Deck: "deck"}
	cfg.Simulation.Steps = 2

	e := New(cfg, dir)
	d, err := e.Deck()
	if err != nil {
		t.Fatalf("read deck: %v", err)
	}
	if len(d.Nodes) != len(generated.Nodes) || len(d.Elements) != len(generated.Elements) {
		t.Errorf("mesh size changed: %d/%d nodes", len(d.Nodes), len(generated.Nodes))
	}
	if len(d.Particles) != len(generated.Particles) {
		t.Errorf("expected %d particles, got %d", len(generated.Particles), len(d.Particles))
	}
	if len(d.VelocityConstraints) != len(generated.VelocityConstraints) {
		t.Errorf("expected %d constraints, got %d", len(generated.VelocityConstraints), len(d.VelocityConstraints))
	}

	if err := e.Setup(quiet()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestSetupErrors(t *testing.T) {
	cfg := config.GetPreset("free_fall")
	cfg.Materials[0].Model = "plasticine"
	if err := New(cfg, "").Setup(quiet()); err == nil {
		t.Error("expected unknown model error")
	}

	cfg = config.GetPreset("free_fall")
	cfg.Materials[0].Model = "mohr_coulomb"
	if err := New(cfg, "").Setup(quiet()); err == nil {
		t.Error("expected a model without stress update to be rejected")
	}

	if _, err := New(config.GetPreset("free_fall"), "").Run(context.Background()); err == nil {
		t.Error("expected error before setup")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, err := r.GetMetric("kinetic_energy"); err != nil {
		t.Error(err)
	}
	if _, err := r.GetMetric("entropy"); err == nil {
		t.Error("expected unknown metric error")
	}
	if len(r.DefaultMetrics()) != len(r.ListMetrics()) {
		t.Error("default metrics should cover every metric")
	}
	if len(r.ListMaterials()) != 3 {
		t.Errorf("expected 3 materials, got %v", r.ListMaterials())
	}
}

func TestMetadata(t *testing.T) {
	cfg := config.GetPreset("free_fall")
	cfg.Simulation.Steps = 3

	e := New(cfg, "")
	if meta := e.Metadata(nil, nil); meta.Particles != 0 || meta.Name != "free_fall" {
		t.Errorf("metadata before setup: %+v", meta)
	}
	if err := e.Setup(quiet()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	meta := e.Metadata(result, nil)
	if meta.Particles != 16 || meta.Nodes != 11*21 || meta.Elements != 200 {
		t.Errorf("unexpected sizes: %+v", meta)
	}
	if meta.StepsTaken != 3 || meta.Scheme != "usl" {
		t.Errorf("unexpected run record: %+v", meta)
	}
	if meta.DomainMax != [2]float64{1, 2} {
		t.Errorf("domain max %v", meta.DomainMax)
	}
	if meta.Error != "" {
		t.Errorf("unexpected error %q", meta.Error)
	}
}
