package config

import (
	"errors"
	"testing"
)

func TestCloneIsDeep(t *testing.T) {
	a := GetPreset("lid_driven_cavity")
	b := a.Clone()

	b.Materials[0].Params["viscosity"] = 5
	b.Mesh.Structured.LidVelocity = 1
	b.Particles.Blocks[0].Max[0] = 7

	if a.Materials[0].Params["viscosity"] == 5 {
		t.Error("clone shared material params")
	}
	if a.Mesh.Structured.LidVelocity == 1 {
		t.Error("clone shared structured mesh")
	}
	if a.Particles.Blocks[0].Max[0] == 7 {
		t.Error("clone shared particle blocks")
	}
}

func TestSetParam(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		check func(c *Config) bool
	}{
		{"dt", 2e-4, func(c *Config) bool { return c.Simulation.Dt == 2e-4 }},
		{"steps", 30, func(c *Config) bool { return c.Simulation.Steps == 30 }},
		{"workers", 3, func(c *Config) bool { return c.Simulation.Workers == 3 }},
		{"gravity_y", -1, func(c *Config) bool { return c.Simulation.Gravity[1] == -1 }},
		{"lid_velocity", 0.5, func(c *Config) bool { return c.Mesh.Structured.LidVelocity == 0.5 }},
		{"material.0.youngs_modulus", 2e6, func(c *Config) bool { return c.Materials[0].Params["youngs_modulus"] == 2e6 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetPreset("free_fall")
			if err := cfg.SetParam(tt.name, tt.value); err != nil {
				t.Fatalf("SetParam: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("%s not applied", tt.name)
			}
		})
	}
}

func TestSetParamUnknown(t *testing.T) {
	cfg := GetPreset("free_fall")
	for _, name := range []string{"viscosity", "material.9.density", "material.x.density", "material.0"} {
		if err := cfg.SetParam(name, 1); !errors.Is(err, ErrUnknownParam) {
			t.Errorf("%s: expected ErrUnknownParam, got %v", name, err)
		}
	}
}

func TestParamsListsMaterials(t *testing.T) {
	names := GetPreset("free_fall").Params()
	want := map[string]bool{"dt": false, "lid_velocity": false, "material.0.density": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("missing %s in %v", n, names)
		}
	}
}
