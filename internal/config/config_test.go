package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "default" {
		t.Errorf("expected name default, got %s", cfg.Name)
	}
	if cfg.Simulation.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %s missing", name)
		}
		if cfg.Name != name {
			t.Errorf("preset %s carries name %s", name, cfg.Name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestGetPresetReturnsCopy(t *testing.T) {
	a := GetPreset("free_fall")
	a.Simulation.Dt = 42
	a.Materials[0].Params["density"] = 1

	b := GetPreset("free_fall")
	if b.Simulation.Dt == 42 {
		t.Error("preset shared simulation state")
	}
	if b.Materials[0].Params["density"] != 1000 {
		t.Error("preset shared material params")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresetsSorted(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Simulation.Dt = 0 }},
		{"negative steps", func(c *Config) { c.Simulation.Steps = -1 }},
		{"zero output cadence", func(c *Config) { c.Simulation.OutputEvery = 0 }},
		{"negative workers", func(c *Config) { c.Simulation.Workers = -2 }},
		{"unknown scheme", func(c *Config) { c.Simulation.Scheme = "apic" }},
		{"unknown advection", func(c *Config) { c.Simulation.Advection = "mixed" }},
		{"unknown gravity mode", func(c *Config) { c.Simulation.GravityMode = "both" }},
		{"no materials", func(c *Config) { c.Materials = nil }},
		{"duplicate material", func(c *Config) { c.Materials = append(c.Materials, c.Materials[0]) }},
		{"material without model", func(c *Config) { c.Materials[0].Model = "" }},
		{"two meshes", func(c *Config) { c.Mesh.Deck = "deck" }},
		{"no mesh", func(c *Config) { c.Mesh.Structured = nil }},
		{"no particles", func(c *Config) { c.Particles.Blocks = nil }},
		{"block with unknown material", func(c *Config) { c.Particles.Blocks[0].Material = 9 }},
	}

	for _, tt := range tests {
		cfg := GetPreset("free_fall")
		tt.mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", tt.name, err)
		}
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("standing_wave")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Simulation.Dt != cfg.Simulation.Dt {
		t.Errorf("dt: expected %g, got %g", cfg.Simulation.Dt, loaded.Simulation.Dt)
	}
	if !loaded.Simulation.PressureSmoothing {
		t.Error("pressure smoothing lost")
	}
	if loaded.Mesh.Structured == nil || loaded.Mesh.Structured.Cells != cfg.Mesh.Structured.Cells {
		t.Error("structured mesh lost")
	}
	if got := loaded.Particles.Blocks[0].WaveAmplitude; got != 0.05 {
		t.Errorf("wave amplitude: expected 0.05, got %g", got)
	}
	if got := loaded.Materials[0].Params["bulk_modulus"]; got != 2e5 {
		t.Errorf("bulk modulus: expected 2e5, got %g", got)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "min.yaml")
	doc := `name: minimal
simulation:
  dt: 0.001
  steps: 10
materials:
  - id: 0
    model: newtonian
    params: {density: 1000, viscosity: 0.001, bulk_modulus: 2.0e+5}
mesh:
  structured: {size: [1, 1], cells: [4, 4], bottom: fixed}
particles:
  blocks:
    - {material: 0, max: [1, 0.5], spacing: [0.125, 0.125]}
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Simulation.Scheme != DefaultScheme {
		t.Errorf("expected default scheme, got %q", cfg.Simulation.Scheme)
	}
	if cfg.Simulation.OutputEvery != DefaultOutputEvery {
		t.Errorf("expected default cadence, got %d", cfg.Simulation.OutputEvery)
	}
	if cfg.Simulation.Gravity[1] != DefaultGravity {
		t.Errorf("expected default gravity, got %v", cfg.Simulation.Gravity)
	}
	if cfg.Simulation.Steps != 10 {
		t.Errorf("expected 10 steps, got %d", cfg.Simulation.Steps)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("simulation:\n  dt: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
