package solver

import (
	"fmt"
	"time"

	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Scheme selects where the particle velocity feeds the strain update.
type Scheme string

const (
	// SchemeUSL updates stress with the freshly solved nodal velocities.
	SchemeUSL Scheme = "usl"
	// SchemeMUSL remaps the updated particle momentum to the grid first.
	SchemeMUSL Scheme = "musl"
)

// Advection selects the velocity used to move material points.
type Advection string

const (
	AdvectParticle Advection = "particle" // x += dt·v_p
	AdvectGrid     Advection = "grid"     // x += dt·Σ N·v_node
)

// GravityMode selects where the body force enters the momentum balance.
type GravityMode string

const (
	GravityAtParticles GravityMode = "particle"
	GravityAtNodes     GravityMode = "node"
)

// Config is the global parameter table of a run.
type Config struct {
	Dt          float64
	Steps       int
	OutputEvery int

	Gravity     tensor.Vec
	GravityMode GravityMode
	Scheme      Scheme
	Advection   Advection

	PressureSmoothing bool
	ValidateState     bool
	MassTolerance     float64
}

func DefaultConfig() Config {
	return Config{
		Dt:            1e-4,
		Steps:         1000,
		OutputEvery:   100,
		Gravity:       tensor.Vec{0, -9.81},
		GravityMode:   GravityAtParticles,
		Scheme:        SchemeUSL,
		Advection:     AdvectParticle,
		ValidateState: true,
		MassTolerance: grid.DefaultMassTolerance,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.Dt > 0):
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	case c.Steps < 0:
		return fmt.Errorf("%w: steps must be non-negative, got %d", ErrInvalidConfig, c.Steps)
	case c.OutputEvery <= 0:
		return fmt.Errorf("%w: output cadence must be positive, got %d", ErrInvalidConfig, c.OutputEvery)
	case c.MassTolerance < 0:
		return fmt.Errorf("%w: mass tolerance must be non-negative", ErrInvalidConfig)
	case !c.Gravity.IsFinite():
		return fmt.Errorf("%w: gravity must be finite", ErrInvalidConfig)
	}
	switch c.Scheme {
	case SchemeUSL, SchemeMUSL:
	default:
		return fmt.Errorf("%w: unknown scheme %q", ErrInvalidConfig, c.Scheme)
	}
	switch c.Advection {
	case AdvectParticle, AdvectGrid:
	default:
		return fmt.Errorf("%w: unknown advection %q", ErrInvalidConfig, c.Advection)
	}
	switch c.GravityMode {
	case GravityAtParticles, GravityAtNodes:
	default:
		return fmt.Errorf("%w: unknown gravity mode %q", ErrInvalidConfig, c.GravityMode)
	}
	return nil
}

// Writer receives particle output at the configured cadence.
type Writer interface {
	WriteSnapshot(step int, t float64, points []particle.Snapshot) error
}

type Metric interface {
	Name() string
	Observe(points *particle.Set, t float64)
	Value() float64
	Reset()
}

// Observer is notified after every completed step.
type Observer interface {
	OnStep(step int, t float64, points *particle.Set)
}

type Result struct {
	StepsTaken  int
	Time        float64
	Snapshots   int
	Metrics     map[string]float64
	MassDrift   float64
	Elapsed     time.Duration
	PhaseTiming map[Phase]time.Duration
}
