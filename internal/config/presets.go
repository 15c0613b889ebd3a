package config

import "sort"

// Presets builds a fresh configuration per call so callers may mutate the
// result.
var Presets = map[string]func() *Config{
	"lid_driven_cavity": lidDrivenCavity,
	"standing_wave":     standingWave,
	"compression_test":  compressionTest,
	"elastic_block":     elasticBlock,
	"free_fall":         freeFall,
}

func water(viscosity, bulk float64) MaterialConfig {
	return MaterialConfig{
		ID:    0,
		Model: "newtonian",
		Params: map[string]float64{
			"density":      1000,
			"viscosity":    viscosity,
			"bulk_modulus": bulk,
		},
	}
}

func elastic(youngs float64) MaterialConfig {
	return MaterialConfig{
		ID:    0,
		Model: "linear_elastic",
		Params: map[string]float64{
			"density":        1000,
			"youngs_modulus": youngs,
			"poisson_ratio":  0.3,
		},
	}
}

func lidDrivenCavity() *Config {
	sim := DefaultSimulation()
	sim.Dt = 1e-4
	sim.Steps = 20000
	sim.OutputEvery = 1000
	sim.Gravity = [2]float64{0, 0}
	sim.GravityMode = "node"
	return &Config{
		Name:       "lid_driven_cavity",
		Simulation: sim,
		Materials:  []MaterialConfig{water(1e-2, 2e3)},
		Mesh: MeshConfig{Structured: &StructuredConfig{
			Size:        [2]float64{0.1, 0.1},
			Cells:       [2]int{50, 50},
			Bottom:      "fixed",
			Right:       "fixed",
			Top:         "lid",
			Left:        "fixed",
			LidVelocity: 0.01,
		}},
		Particles: ParticlesConfig{Blocks: []BlockConfig{{
			Max:     [2]float64{0.1, 0.1},
			Spacing: [2]float64{0.001, 0.001},
		}}},
	}
}

func standingWave() *Config {
	sim := DefaultSimulation()
	sim.Dt = 5e-5
	sim.Steps = 40000
	sim.OutputEvery = 2000
	sim.PressureSmoothing = true
	return &Config{
		Name:       "standing_wave",
		Simulation: sim,
		Materials:  []MaterialConfig{water(1e-3, 2e5)},
		Mesh: MeshConfig{Structured: &StructuredConfig{
			Size:                [2]float64{1, 0.6},
			Cells:               [2]int{40, 24},
			Bottom:              "slip",
			Right:               "slip",
			Top:                 "free",
			Left:                "slip",
			FreeSurfacePressure: true,
		}},
		Particles: ParticlesConfig{Blocks: []BlockConfig{{
			Max:           [2]float64{1, 0.5},
			Spacing:       [2]float64{0.0125, 0.0125},
			WaveAmplitude: 0.05,
			Hydrostatic:   true,
		}}},
	}
}

func compressionTest() *Config {
	sim := DefaultSimulation()
	sim.Dt = 1e-5
	sim.Steps = 10000
	sim.OutputEvery = 500
	return &Config{
		Name:       "compression_test",
		Simulation: sim,
		Materials:  []MaterialConfig{water(1e-3, 2e5)},
		Mesh: MeshConfig{Structured: &StructuredConfig{
			Size:   [2]float64{0.1, 0.12},
			Cells:  [2]int{50, 60},
			Bottom: "fixed",
			Right:  "slip",
			Top:    "free",
			Left:   "slip",
		}},
		Particles: ParticlesConfig{Blocks: []BlockConfig{{
			Max:         [2]float64{0.1, 0.1},
			Spacing:     [2]float64{0.001, 0.001},
			Hydrostatic: true,
		}}},
	}
}

func elasticBlock() *Config {
	sim := DefaultSimulation()
	sim.Dt = 2e-4
	sim.Steps = 5000
	sim.OutputEvery = 250
	return &Config{
		Name:       "elastic_block",
		Simulation: sim,
		Materials:  []MaterialConfig{elastic(1e6)},
		Mesh: MeshConfig{Structured: &StructuredConfig{
			Size:   [2]float64{1, 1},
			Cells:  [2]int{20, 20},
			Bottom: "fixed",
			Right:  "slip",
			Top:    "free",
			Left:   "slip",
		}},
		Particles: ParticlesConfig{Blocks: []BlockConfig{{
			Min:     [2]float64{0.3, 0},
			Max:     [2]float64{0.7, 0.4},
			Spacing: [2]float64{0.025, 0.025},
		}}},
	}
}

func freeFall() *Config {
	sim := DefaultSimulation()
	sim.Dt = 1e-3
	sim.Steps = 500
	sim.OutputEvery = 50
	return &Config{
		Name:       "free_fall",
		Simulation: sim,
		Materials:  []MaterialConfig{elastic(1e6)},
		Mesh: MeshConfig{Structured: &StructuredConfig{
			Size:   [2]float64{1, 2},
			Cells:  [2]int{10, 20},
			Bottom: "fixed",
			Right:  "free",
			Top:    "free",
			Left:   "free",
		}},
		Particles: ParticlesConfig{Blocks: []BlockConfig{{
			Min:     [2]float64{0.4, 1.6},
			Max:     [2]float64{0.6, 1.8},
			Spacing: [2]float64{0.05, 0.05},
		}}},
	}
}

// GetPreset returns a new copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
