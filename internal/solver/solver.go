package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/mpmsim/internal/compute"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/particle"
)

type Solver struct {
	cfg    Config
	phases []Phase

	grid    *grid.Grid
	points  *particle.Set
	backend compute.Backend
	logger  *slog.Logger
	writer  Writer

	metrics   []Metric
	observers []Observer

	step   int
	time   float64
	timing map[Phase]time.Duration
}

type Option func(*Solver)

func WithBackend(be compute.Backend) Option { return func(s *Solver) { s.backend = be } }
func WithLogger(l *slog.Logger) Option      { return func(s *Solver) { s.logger = l } }
func WithWriter(w Writer) Option            { return func(s *Solver) { s.writer = w } }

func New(cfg Config, g *grid.Grid, points *particle.Set, opts ...Option) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if g == nil || points == nil {
		return nil, fmt.Errorf("%w: grid and particles are required", ErrInvalidConfig)
	}
	s := &Solver{
		cfg:     cfg,
		phases:  Phases(cfg),
		grid:    g,
		points:  points,
		backend: compute.NewCPUBackend(0, compute.DefaultMinChunk),
		logger:  slog.Default(),
		timing:  make(map[Phase]time.Duration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Solver) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Solver) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Solver) Config() Config           { return s.cfg }
func (s *Solver) Grid() *grid.Grid         { return s.grid }
func (s *Solver) Points() *particle.Set    { return s.points }
func (s *Solver) StepCount() int           { return s.step }
func (s *Solver) Time() float64            { return s.time }
func (s *Solver) Phases() []Phase          { return s.phases }
func (s *Solver) Backend() compute.Backend { return s.backend }

// Step advances the state by one time step. On failure the state is left
// as the failing phase found it and the run must not continue.
func (s *Solver) Step(ctx context.Context) error {
	for _, ph := range s.phases {
		start := time.Now()
		if err := s.runPhase(ctx, ph); err != nil {
			return &StepError{Step: s.step, Time: s.time, Phase: ph, Wrapped: err}
		}
		s.timing[ph] += time.Since(start)
	}
	s.step++
	s.time += s.cfg.Dt
	return nil
}

// Run executes the configured number of steps. Snapshots are written before
// every step whose index is a multiple of the output cadence, and once more
// after the last step when the step count is a multiple of it.
func (s *Solver) Run(ctx context.Context) (*Result, error) {
	result := &Result{Metrics: make(map[string]float64)}
	for _, m := range s.metrics {
		m.Reset()
	}

	initialMass := s.points.TotalMass()
	began := time.Now()
	s.logger.Info("run started",
		"particles", s.points.Len(),
		"nodes", len(s.grid.Nodes),
		"elements", len(s.grid.Elements),
		"steps", s.cfg.Steps,
		"dt", s.cfg.Dt,
		"scheme", string(s.cfg.Scheme),
		"workers", s.backend.Workers())

	finish := func() {
		result.StepsTaken = s.step
		result.Time = s.time
		result.Elapsed = time.Since(began)
		if initialMass != 0 {
			result.MassDrift = math.Abs(s.points.TotalMass()-initialMass) / initialMass
		}
		for _, m := range s.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
		result.PhaseTiming = make(map[Phase]time.Duration, len(s.timing))
		for ph, d := range s.timing {
			result.PhaseTiming[ph] = d
		}
	}

	for i := 0; i < s.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			finish()
			return result, ctx.Err()
		default:
		}

		if s.step%s.cfg.OutputEvery == 0 {
			if err := s.output(); err != nil {
				finish()
				return result, err
			}
			result.Snapshots++
		}

		for _, m := range s.metrics {
			m.Observe(s.points, s.time)
		}

		if err := s.Step(ctx); err != nil {
			finish()
			s.logger.Error("run aborted", "step", s.step, "error", err)
			return result, err
		}

		for _, obs := range s.observers {
			obs.OnStep(s.step, s.time, s.points)
		}
	}

	if s.cfg.Steps > 0 && s.step%s.cfg.OutputEvery == 0 {
		if err := s.output(); err != nil {
			finish()
			return result, err
		}
		result.Snapshots++
	}
	for _, m := range s.metrics {
		m.Observe(s.points, s.time)
	}

	finish()
	for ph, d := range result.PhaseTiming {
		s.logger.Debug("phase timing", "phase", ph.String(), "total", d)
	}
	s.logger.Info("run finished",
		"steps", result.StepsTaken,
		"time", result.Time,
		"snapshots", result.Snapshots,
		"mass_drift", result.MassDrift,
		"elapsed", result.Elapsed)
	return result, nil
}

func (s *Solver) output() error {
	s.logger.Info("output", "step", s.step, "time", s.time,
		"kinetic_energy", s.points.KineticEnergy())
	if s.writer == nil {
		return nil
	}
	if err := s.writer.WriteSnapshot(s.step, s.time, s.points.Snapshot()); err != nil {
		return fmt.Errorf("write snapshot at step %d: %w", s.step, err)
	}
	return nil
}

func (s *Solver) runPhase(ctx context.Context, ph Phase) error {
	pts := s.points.Points()
	n := len(pts)
	nodes := s.grid.Nodes
	dt, tol := s.cfg.Dt, s.cfg.MassTolerance

	each := func(fn func(p *particle.MaterialPoint) error) error {
		return s.backend.For(ctx, n, func(start, end int) error {
			for i := start; i < end; i++ {
				if err := fn(&pts[i]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	scatter := func(layout grid.Layout, fn func(p *particle.MaterialPoint, acc *grid.Accumulator)) error {
		acc, err := s.backend.Scatter(ctx, n, layout, len(nodes), func(acc *grid.Accumulator, start, end int) error {
			for i := start; i < end; i++ {
				fn(&pts[i], acc)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.grid.Apply(acc)
		return nil
	}

	switch ph {
	case PhaseResetGrid:
		s.grid.InitialiseStep()

	case PhaseLocate:
		return s.points.Locate(ctx, s.grid, s.backend)

	case PhaseKinematics:
		return each(func(p *particle.MaterialPoint) error {
			p.ComputeKinematics(&s.grid.Elements[p.Element])
			return nil
		})

	case PhaseMapMassMomentum:
		return scatter(grid.LayoutMassMomentum, func(p *particle.MaterialPoint, acc *grid.Accumulator) {
			p.MapMassMomentum(acc)
		})

	case PhaseNodalVelocity:
		s.grid.ComputeNodalVelocities(tol)

	case PhaseMapForces:
		atParticles := s.cfg.GravityMode == GravityAtParticles
		return scatter(grid.LayoutForces, func(p *particle.MaterialPoint, acc *grid.Accumulator) {
			p.MapForces(acc, s.cfg.Gravity, atParticles)
		})

	case PhaseSolveNodes:
		s.grid.Solve(dt, tol, s.cfg.Gravity, s.cfg.GravityMode == GravityAtNodes)

	case PhaseStrainRate:
		return each(func(p *particle.MaterialPoint) error {
			p.ComputeStrainRates(nodes)
			return nil
		})

	case PhaseVolumetricAverage:
		err := scatter(grid.LayoutVolStrainRate, func(p *particle.MaterialPoint, acc *grid.Accumulator) {
			p.MapVolStrainRate(acc)
		})
		if err != nil {
			return err
		}
		return each(func(p *particle.MaterialPoint) error {
			p.GatherCentreVolStrainRate(nodes, tol)
			return nil
		})

	case PhaseStressUpdate:
		return each(func(p *particle.MaterialPoint) error {
			p.ComputeStrain(dt)
			if err := p.ComputeStress(dt); err != nil {
				return fmt.Errorf("particle %d: %w", p.ID, err)
			}
			return nil
		})

	case PhasePressureSmoothing:
		err := scatter(grid.LayoutPressure, func(p *particle.MaterialPoint, acc *grid.Accumulator) {
			p.MapPressure(acc)
		})
		if err != nil {
			return err
		}
		return each(func(p *particle.MaterialPoint) error {
			p.GatherPressure(nodes, tol)
			return nil
		})

	case PhaseUpdateVelocity:
		return each(func(p *particle.MaterialPoint) error {
			p.UpdateVelocity(nodes, dt)
			return nil
		})

	case PhaseRemapMomentum:
		err := scatter(grid.LayoutEndMomentum, func(p *particle.MaterialPoint, acc *grid.Accumulator) {
			p.MapEndMomentum(acc)
		})
		if err != nil {
			return err
		}
		s.grid.ComputeNodalVelocitiesFromEndMomentum(tol)

	case PhaseAdvect:
		fromGrid := s.cfg.Advection == AdvectGrid
		return each(func(p *particle.MaterialPoint) error {
			p.UpdatePosition(nodes, dt, fromGrid)
			p.UpdateDensity(dt)
			return nil
		})

	case PhaseValidate:
		return each(func(p *particle.MaterialPoint) error {
			if !p.IsFinite() {
				return fmt.Errorf("%w: particle %d", ErrNonFinite, p.ID)
			}
			return nil
		})

	default:
		return errors.New("solver: unknown phase " + ph.String())
	}
	return nil
}
