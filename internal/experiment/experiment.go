// Package experiment assembles a run from its configuration: the deck
// (read from disk or generated), the material models, the particle set and
// the solver.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/san-kum/mpmsim/internal/compute"
	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/generator"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/input"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/solver"
	"github.com/san-kum/mpmsim/internal/storage"
	"github.com/san-kum/mpmsim/internal/tensor"
)

type Experiment struct {
	cfg     *config.Config
	baseDir string

	deck   *input.Deck
	models map[int]material.Model
	grid   *grid.Grid
	points *particle.Set
	solver *solver.Solver
}

// New prepares an experiment. Relative deck paths resolve against baseDir.
func New(cfg *config.Config, baseDir string) *Experiment {
	return &Experiment{cfg: cfg, baseDir: baseDir}
}

// SolverConfig converts the simulation table into the solver's parameters.
func SolverConfig(s config.SimulationConfig) solver.Config {
	return solver.Config{
		Dt:                s.Dt,
		Steps:             s.Steps,
		OutputEvery:       s.OutputEvery,
		Gravity:           tensor.Vec(s.Gravity),
		GravityMode:       solver.GravityMode(s.GravityMode),
		Scheme:            solver.Scheme(s.Scheme),
		Advection:         solver.Advection(s.Advection),
		PressureSmoothing: s.PressureSmoothing,
		ValidateState:     s.ValidateState,
		MassTolerance:     s.MassTolerance,
	}
}

// Materials builds every configured model.
func Materials(cfgs []config.MaterialConfig, dt float64) (map[int]material.Model, error) {
	models := make(map[int]material.Model, len(cfgs))
	for _, mc := range cfgs {
		m, err := material.New(mc.Model, material.Params(mc.Params), dt)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", mc.ID, err)
		}
		models[mc.ID] = m
	}
	return models, nil
}

func (e *Experiment) path(p string) string {
	if filepath.IsAbs(p) || e.baseDir == "" {
		return p
	}
	return filepath.Join(e.baseDir, p)
}

// Deck returns the mesh, constraints and particles of the run, reading or
// generating them on first use.
func (e *Experiment) Deck() (*input.Deck, error) {
	if e.deck != nil {
		return e.deck, nil
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	decks := make(map[string]*input.Deck)
	readDeck := func(dir string) (*input.Deck, error) {
		dir = e.path(dir)
		if d, ok := decks[dir]; ok {
			return d, nil
		}
		d, err := input.Read(dir)
		if err != nil {
			return nil, err
		}
		decks[dir] = d
		return d, nil
	}

	d := &input.Deck{}
	if dir := e.cfg.Mesh.Deck; dir != "" {
		src, err := readDeck(dir)
		if err != nil {
			return nil, fmt.Errorf("mesh: %w", err)
		}
		d.Nodes = src.Nodes
		d.Elements = src.Elements
		d.VelocityConstraints = src.VelocityConstraints
		d.PressureConstraints = src.PressureConstraints
	} else {
		mesh, err := generator.StructuredMesh(meshSpec(e.cfg.Mesh.Structured))
		if err != nil {
			return nil, fmt.Errorf("mesh: %w", err)
		}
		d.Nodes = mesh.Nodes
		d.Elements = mesh.Elements
		d.VelocityConstraints = mesh.VelocityConstraints
		d.PressureConstraints = mesh.PressureConstraints
	}

	if dir := e.cfg.Particles.Deck; dir != "" {
		src, err := readDeck(dir)
		if err != nil {
			return nil, fmt.Errorf("particles: %w", err)
		}
		d.Particles = src.Particles
	} else {
		var err error
		if d.Particles, err = generator.Particles(e.blocks(), 0); err != nil {
			return nil, fmt.Errorf("particles: %w", err)
		}
	}

	e.deck = d
	return d, nil
}

func meshSpec(s *config.StructuredConfig) generator.MeshSpec {
	return generator.MeshSpec{
		Origin: tensor.Vec(s.Origin),
		Size:   tensor.Vec(s.Size),
		Cells:  s.Cells,
		Boundaries: [4]generator.Boundary{
			generator.Bottom: generator.Boundary(s.Bottom),
			generator.Right:  generator.Boundary(s.Right),
			generator.Top:    generator.Boundary(s.Top),
			generator.Left:   generator.Boundary(s.Left),
		},
		LidVelocity:         s.LidVelocity,
		FreeSurfacePressure: s.FreeSurfacePressure,
	}
}

// blocks resolves hydrostatic density from the block's material. Depth is
// measured along y, so only the downward gravity component loads it.
func (e *Experiment) blocks() []generator.Block {
	g := -e.cfg.Simulation.Gravity[1]
	out := make([]generator.Block, len(e.cfg.Particles.Blocks))
	for i, b := range e.cfg.Particles.Blocks {
		out[i] = generator.Block{
			Material:      b.Material,
			Min:           tensor.Vec(b.Min),
			Max:           tensor.Vec(b.Max),
			Spacing:       tensor.Vec(b.Spacing),
			Velocity:      tensor.Vec(b.Velocity),
			WaveAmplitude: b.WaveAmplitude,
			Hydrostatic:   b.Hydrostatic,
			Gravity:       g,
		}
		if b.Hydrostatic {
			mc, _ := e.cfg.Material(b.Material)
			out[i].Density = mc.Params["density"]
		}
	}
	return out
}

// Setup builds the grid, particles and solver. Extra options are applied
// after the configured backend.
func (e *Experiment) Setup(logger *slog.Logger, opts ...solver.Option) error {
	d, err := e.Deck()
	if err != nil {
		return err
	}
	sim := e.cfg.Simulation

	if e.models, err = Materials(e.cfg.Materials, sim.Dt); err != nil {
		return err
	}

	if e.grid, err = grid.New(d.Nodes, d.Elements); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := e.grid.SetVelocityConstraints(d.VelocityConstraints); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if err := e.grid.SetPressureConstraints(d.PressureConstraints); err != nil {
		return fmt.Errorf("grid: %w", err)
	}

	if e.points, err = particle.New(d.Particles); err != nil {
		return fmt.Errorf("particles: %w", err)
	}
	if err := e.points.AssignMaterials(e.models); err != nil {
		return fmt.Errorf("particles: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	all := append([]solver.Option{
		solver.WithBackend(compute.NewCPUBackend(sim.Workers, compute.DefaultMinChunk)),
		solver.WithLogger(logger),
	}, opts...)
	if e.solver, err = solver.New(SolverConfig(sim), e.grid, e.points, all...); err != nil {
		return err
	}

	for _, m := range NewRegistry().DefaultMetrics() {
		e.solver.AddMetric(m)
	}
	logger.Debug("experiment ready",
		"name", e.cfg.Name,
		"nodes", len(d.Nodes),
		"elements", len(d.Elements),
		"particles", len(d.Particles),
		"materials", len(e.models))
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*solver.Result, error) {
	if e.solver == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.solver.Run(ctx)
}

// Solver returns the underlying solver for adding observers.
func (e *Experiment) Solver() *solver.Solver { return e.solver }

func (e *Experiment) Config() *config.Config { return e.cfg }

// Bounds returns the bounding box of the mesh nodes.
func (e *Experiment) Bounds() (lo, hi tensor.Vec, err error) {
	d, err := e.Deck()
	if err != nil {
		return lo, hi, err
	}
	lo = tensor.Vec{math.Inf(1), math.Inf(1)}
	hi = tensor.Vec{math.Inf(-1), math.Inf(-1)}
	for _, n := range d.Nodes {
		for a := 0; a < tensor.Dim; a++ {
			lo[a] = math.Min(lo[a], n.Coord[a])
			hi[a] = math.Max(hi[a], n.Coord[a])
		}
	}
	return lo, hi, nil
}

// Metadata describes the run for storage. A nil result or a failed setup
// records only what is known.
func (e *Experiment) Metadata(result *solver.Result, runErr error) storage.RunMetadata {
	sim := e.cfg.Simulation
	meta := storage.RunMetadata{
		Name:        e.cfg.Name,
		Timestamp:   time.Now(),
		Scheme:      sim.Scheme,
		Dt:          sim.Dt,
		Steps:       sim.Steps,
		OutputEvery: sim.OutputEvery,
	}
	if e.solver != nil {
		meta.Particles = e.points.Len()
		meta.Nodes = len(e.grid.Nodes)
		meta.Elements = len(e.grid.Elements)
		if lo, hi, err := e.Bounds(); err == nil {
			meta.DomainMin, meta.DomainMax = lo, hi
		}
	}
	if result != nil {
		meta.StepsTaken = result.StepsTaken
		meta.Time = result.Time
		meta.MassDrift = result.MassDrift
		meta.Elapsed = result.Elapsed.Seconds()
		meta.Metrics = result.Metrics
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	return meta
}
