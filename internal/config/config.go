package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 1e-4
	DefaultSteps       = 1000
	DefaultOutputEvery = 100
	DefaultGravity     = -9.81
	DefaultScheme      = "usl"
	DefaultAdvection   = "particle"
	DefaultGravityMode = "particle"
)

// ErrInvalid indicates a configuration that cannot describe a run.
var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Name       string           `yaml:"name"`
	Simulation SimulationConfig `yaml:"simulation"`
	Materials  []MaterialConfig `yaml:"materials"`
	Mesh       MeshConfig       `yaml:"mesh"`
	Particles  ParticlesConfig  `yaml:"particles"`
}

// SimulationConfig is the global parameter table.
type SimulationConfig struct {
	Dt                float64    `yaml:"dt"`
	Steps             int        `yaml:"steps"`
	OutputEvery       int        `yaml:"output_every"`
	Gravity           [2]float64 `yaml:"gravity"`
	GravityMode       string     `yaml:"gravity_mode"`
	Scheme            string     `yaml:"scheme"`
	Advection         string     `yaml:"advection"`
	PressureSmoothing bool       `yaml:"pressure_smoothing"`
	Workers           int        `yaml:"workers"`
	ValidateState     bool       `yaml:"validate_state"`
	MassTolerance     float64    `yaml:"mass_tolerance"`
}

type MaterialConfig struct {
	ID     int                `yaml:"id"`
	Model  string             `yaml:"model"`
	Params map[string]float64 `yaml:"params"`
}

// MeshConfig names exactly one mesh source.
type MeshConfig struct {
	Deck       string            `yaml:"deck,omitempty"`
	Structured *StructuredConfig `yaml:"structured,omitempty"`
}

type StructuredConfig struct {
	Origin              [2]float64 `yaml:"origin"`
	Size                [2]float64 `yaml:"size"`
	Cells               [2]int     `yaml:"cells"`
	Bottom              string     `yaml:"bottom"`
	Right               string     `yaml:"right"`
	Top                 string     `yaml:"top"`
	Left                string     `yaml:"left"`
	LidVelocity         float64    `yaml:"lid_velocity,omitempty"`
	FreeSurfacePressure bool       `yaml:"free_surface_pressure,omitempty"`
}

// ParticlesConfig reads particles from a deck or generates blocks.
type ParticlesConfig struct {
	Deck   string        `yaml:"deck,omitempty"`
	Blocks []BlockConfig `yaml:"blocks,omitempty"`
}

type BlockConfig struct {
	Material      int        `yaml:"material"`
	Min           [2]float64 `yaml:"min"`
	Max           [2]float64 `yaml:"max"`
	Spacing       [2]float64 `yaml:"spacing"`
	Velocity      [2]float64 `yaml:"velocity,omitempty"`
	WaveAmplitude float64    `yaml:"wave_amplitude,omitempty"`
	Hydrostatic   bool       `yaml:"hydrostatic,omitempty"`
}

func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		Dt:            DefaultDt,
		Steps:         DefaultSteps,
		OutputEvery:   DefaultOutputEvery,
		Gravity:       [2]float64{0, DefaultGravity},
		GravityMode:   DefaultGravityMode,
		Scheme:        DefaultScheme,
		Advection:     DefaultAdvection,
		ValidateState: true,
		MassTolerance: 1e-12,
	}
}

func DefaultConfig() *Config {
	cfg := GetPreset("free_fall")
	cfg.Name = "default"
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Simulation: DefaultSimulation()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case !(s.Dt > 0):
		return invalid("dt must be positive, got %g", s.Dt)
	case s.Steps < 0:
		return invalid("steps must be non-negative, got %d", s.Steps)
	case s.OutputEvery <= 0:
		return invalid("output_every must be positive, got %d", s.OutputEvery)
	case s.Workers < 0:
		return invalid("workers must be non-negative, got %d", s.Workers)
	}
	if err := oneOf("scheme", s.Scheme, "usl", "musl"); err != nil {
		return err
	}
	if err := oneOf("advection", s.Advection, "particle", "grid"); err != nil {
		return err
	}
	if err := oneOf("gravity_mode", s.GravityMode, "particle", "node"); err != nil {
		return err
	}

	if len(c.Materials) == 0 {
		return invalid("no materials")
	}
	seen := make(map[int]bool, len(c.Materials))
	for _, m := range c.Materials {
		if seen[m.ID] {
			return invalid("duplicate material id %d", m.ID)
		}
		seen[m.ID] = true
		if m.Model == "" {
			return invalid("material %d has no model", m.ID)
		}
	}

	if (c.Mesh.Deck == "") == (c.Mesh.Structured == nil) {
		return invalid("mesh needs exactly one of deck or structured")
	}
	if c.Particles.Deck == "" && len(c.Particles.Blocks) == 0 {
		return invalid("particles need a deck or at least one block")
	}
	for i, b := range c.Particles.Blocks {
		if !seen[b.Material] {
			return invalid("block %d uses unknown material %d", i, b.Material)
		}
	}
	return nil
}

func oneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return invalid("%s %q must be one of %v", field, v, allowed)
}

// Material returns the material with the given id.
func (c *Config) Material(id int) (MaterialConfig, bool) {
	for _, m := range c.Materials {
		if m.ID == id {
			return m, true
		}
	}
	return MaterialConfig{}, false
}
