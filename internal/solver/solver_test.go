package solver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mpmsim/internal/compute"
	"github.com/san-kum/mpmsim/internal/generator"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/metrics"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/solver"
	"github.com/san-kum/mpmsim/internal/tensor"
)

const g = 9.81

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// unitElement is a single 1x1 element with nodes 0..3 counter-clockwise
// from the origin.
func unitElement() *grid.Grid {
	gr, err := grid.New(
		[]grid.NodeRecord{
			{ID: 0, Coord: tensor.Vec{0, 0}},
			{ID: 1, Coord: tensor.Vec{1, 0}},
			{ID: 2, Coord: tensor.Vec{1, 1}},
			{ID: 3, Coord: tensor.Vec{0, 1}},
		},
		[]grid.ElementRecord{{ID: 0, Nodes: [4]int{0, 1, 2, 3}}},
	)
	Expect(err).NotTo(HaveOccurred())
	return gr
}

// structured builds a generated mesh with its side constraints applied.
func structured(spec generator.MeshSpec) *grid.Grid {
	mesh, err := generator.StructuredMesh(spec)
	Expect(err).NotTo(HaveOccurred())
	gr, err := grid.New(mesh.Nodes, mesh.Elements)
	Expect(err).NotTo(HaveOccurred())
	Expect(gr.SetVelocityConstraints(mesh.VelocityConstraints)).To(Succeed())
	return gr
}

func elastic(density float64) material.Model {
	m, err := material.New("linear_elastic", material.Params{
		"density":        density,
		"youngs_modulus": 1e5,
		"poisson_ratio":  0.25,
	}, 1e-3)
	Expect(err).NotTo(HaveOccurred())
	return m
}

func points(models map[int]material.Model, recs ...particle.Record) *particle.Set {
	set, err := particle.New(recs)
	Expect(err).NotTo(HaveOccurred())
	Expect(set.AssignMaterials(models)).To(Succeed())
	return set
}

func unit(id int, x, v tensor.Vec) particle.Record {
	return particle.Record{ID: id, Coord: x, Spacing: tensor.Vec{1, 1}, Velocity: v}
}

func newSolver(cfg solver.Config, gr *grid.Grid, set *particle.Set, opts ...solver.Option) *solver.Solver {
	opts = append([]solver.Option{solver.WithLogger(quiet)}, opts...)
	s, err := solver.New(cfg, gr, set, opts...)
	Expect(err).NotTo(HaveOccurred())
	return s
}

type recordingWriter struct {
	steps []int
	sizes []int
}

func (w *recordingWriter) WriteSnapshot(step int, t float64, pts []particle.Snapshot) error {
	w.steps = append(w.steps, step)
	w.sizes = append(w.sizes, len(pts))
	return nil
}

type failingWriter struct{}

func (failingWriter) WriteSnapshot(int, float64, []particle.Snapshot) error {
	return errors.New("disk full")
}

type stepCounter struct{ steps []int }

func (c *stepCounter) OnStep(step int, t float64, pts *particle.Set) {
	c.steps = append(c.steps, step)
}

var _ = Describe("Config", func() {
	It("accepts the defaults", func() {
		Expect(solver.DefaultConfig().Validate()).To(Succeed())
	})

	DescribeTable("rejects",
		func(mutate func(*solver.Config)) {
			cfg := solver.DefaultConfig()
			mutate(&cfg)
			Expect(cfg.Validate()).To(MatchError(solver.ErrInvalidConfig))
		},
		Entry("zero dt", func(c *solver.Config) { c.Dt = 0 }),
		Entry("NaN dt", func(c *solver.Config) { c.Dt = math.NaN() }),
		Entry("negative steps", func(c *solver.Config) { c.Steps = -1 }),
		Entry("zero output cadence", func(c *solver.Config) { c.OutputEvery = 0 }),
		Entry("negative mass tolerance", func(c *solver.Config) { c.MassTolerance = -1 }),
		Entry("infinite gravity", func(c *solver.Config) { c.Gravity = tensor.Vec{0, math.Inf(-1)} }),
		Entry("unknown scheme", func(c *solver.Config) { c.Scheme = "apic" }),
		Entry("unknown advection", func(c *solver.Config) { c.Advection = "mixed" }),
		Entry("unknown gravity mode", func(c *solver.Config) { c.GravityMode = "both" }),
	)

	It("requires a grid and particles", func() {
		_, err := solver.New(solver.DefaultConfig(), nil, nil)
		Expect(err).To(MatchError(solver.ErrInvalidConfig))
	})
})

var _ = Describe("Phases", func() {
	It("orders a USL step", func() {
		cfg := solver.DefaultConfig()
		Expect(solver.Phases(cfg)).To(Equal([]solver.Phase{
			solver.PhaseResetGrid,
			solver.PhaseLocate,
			solver.PhaseKinematics,
			solver.PhaseMapMassMomentum,
			solver.PhaseNodalVelocity,
			solver.PhaseMapForces,
			solver.PhaseSolveNodes,
			solver.PhaseStrainRate,
			solver.PhaseVolumetricAverage,
			solver.PhaseStressUpdate,
			solver.PhaseUpdateVelocity,
			solver.PhaseAdvect,
			solver.PhaseValidate,
		}))
	})

	It("remaps momentum before the strain update in MUSL", func() {
		cfg := solver.DefaultConfig()
		cfg.Scheme = solver.SchemeMUSL
		cfg.PressureSmoothing = true
		cfg.ValidateState = false
		Expect(solver.Phases(cfg)).To(Equal([]solver.Phase{
			solver.PhaseResetGrid,
			solver.PhaseLocate,
			solver.PhaseKinematics,
			solver.PhaseMapMassMomentum,
			solver.PhaseNodalVelocity,
			solver.PhaseMapForces,
			solver.PhaseSolveNodes,
			solver.PhaseUpdateVelocity,
			solver.PhaseRemapMomentum,
			solver.PhaseStrainRate,
			solver.PhaseVolumetricAverage,
			solver.PhaseStressUpdate,
			solver.PhasePressureSmoothing,
			solver.PhaseAdvect,
		}))
	})

	It("names every phase", func() {
		for _, ph := range solver.Phases(solver.DefaultConfig()) {
			Expect(ph.String()).NotTo(Equal("unknown"))
		}
		Expect(solver.Phase(99).String()).To(Equal("unknown"))
	})
})

var _ = Describe("Solver", func() {
	var (
		ctx context.Context
		cfg solver.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = solver.DefaultConfig()
		cfg.Dt = 1e-3
	})

	Describe("a particle falling in a single element", func() {
		var set *particle.Set

		BeforeEach(func() {
			cfg.Steps = 1
			set = points(map[int]material.Model{0: elastic(1)}, unit(0, tensor.Vec{0.5, 0.5}, tensor.Vec{}))
			Expect(set.At(0).Mass).To(BeNumerically("~", 1, 1e-15))
			Expect(set.At(0).Volume).To(BeNumerically("~", 1, 1e-15))
		})

		It("gains g·dt when no node is constrained", func() {
			s := newSolver(cfg, unitElement(), set)
			Expect(s.Step(ctx)).To(Succeed())

			p := set.At(0)
			Expect(p.Velocity[1]).To(BeNumerically("~", -g*cfg.Dt, 1e-12))
			Expect(p.Velocity[0]).To(BeNumerically("~", 0, 1e-15))
		})

		// Fixing node 0 replaces the free-fall g·dt expectation: the fixed
		// corner carries a quarter of the particle and contributes no
		// acceleration, so the particle gains only 0.75·g·dt.
		It("gains 0.75·g·dt instead of g·dt when the corner node 0 is fixed", func() {
			gr := unitElement()
			Expect(gr.SetVelocityConstraints([]grid.VelocityConstraint{
				{Node: 0, Axis: 0, Value: 0},
				{Node: 0, Axis: 1, Value: 0},
			})).To(Succeed())
			s := newSolver(cfg, gr, set)
			Expect(s.Step(ctx)).To(Succeed())

			Expect(gr.Nodes[0].Velocity).To(Equal(tensor.Vec{}))
			Expect(gr.Nodes[0].Acceleration).To(Equal(tensor.Vec{}))
			Expect(gr.Nodes[2].Acceleration[1]).To(BeNumerically("~", -g, 1e-12))

			p := set.At(0)
			Expect(p.Velocity[1]).To(BeNumerically("~", -0.75*g*cfg.Dt, 1e-12))
			Expect(p.Velocity[0]).To(BeNumerically("~", 0, 1e-15))
		})

		It("gives the same result with gravity applied at the nodes", func() {
			cfg.GravityMode = solver.GravityAtNodes
			s := newSolver(cfg, unitElement(), set)
			Expect(s.Step(ctx)).To(Succeed())
			Expect(set.At(0).Velocity[1]).To(BeNumerically("~", -g*cfg.Dt, 1e-12))
		})

		It("accelerates by dt·t/m under a particle traction", func() {
			cfg.Gravity = tensor.Vec{}
			rec := unit(0, tensor.Vec{0.5, 0.5}, tensor.Vec{})
			rec.Traction = tensor.Vec{2, 0}
			set = points(map[int]material.Model{0: elastic(1)}, rec)
			gr := unitElement()
			s := newSolver(cfg, gr, set)
			Expect(s.Step(ctx)).To(Succeed())

			for _, n := range gr.Nodes {
				Expect(n.ExtForce[0]).To(BeNumerically("~", 0.5, 1e-12))
				Expect(n.ExtForce[1]).To(BeNumerically("~", 0, 1e-15))
			}
			p := set.At(0)
			Expect(p.Velocity[0]).To(BeNumerically("~", 2*cfg.Dt, 1e-12))
			Expect(p.Velocity[1]).To(BeNumerically("~", 0, 1e-15))
		})
	})

	It("scatters two particles on one node into a shared momentum", func() {
		cfg.Gravity = tensor.Vec{}
		gr := unitElement()
		set := points(
			map[int]material.Model{0: elastic(2), 1: elastic(3)},
			particle.Record{ID: 0, Material: 0, Coord: tensor.Vec{0, 0}, Spacing: tensor.Vec{1, 1}, Velocity: tensor.Vec{1, 0}},
			particle.Record{ID: 1, Material: 1, Coord: tensor.Vec{0, 0}, Spacing: tensor.Vec{1, 1}, Velocity: tensor.Vec{0, 1}},
		)
		s := newSolver(cfg, gr, set)
		Expect(s.Step(ctx)).To(Succeed())

		n := gr.Nodes[0]
		Expect(n.Mass).To(BeNumerically("~", 5, 1e-12))
		Expect(n.Momentum[0]).To(BeNumerically("~", 2, 1e-12))
		Expect(n.Momentum[1]).To(BeNumerically("~", 3, 1e-12))
		Expect(n.Velocity[0]).To(BeNumerically("~", 0.4, 1e-12))
		Expect(n.Velocity[1]).To(BeNumerically("~", 0.6, 1e-12))
		for _, other := range gr.Nodes[1:] {
			Expect(other.Velocity).To(Equal(tensor.Vec{}))
		}
	})

	DescribeTable("translates a free particle rigidly",
		func(scheme solver.Scheme, advection solver.Advection) {
			cfg.Gravity = tensor.Vec{}
			cfg.Scheme = scheme
			cfg.Advection = advection
			cfg.Dt = 0.01
			cfg.Steps = 100
			v0 := tensor.Vec{0.3, 0.2}

			gr := structured(generator.MeshSpec{Size: tensor.Vec{8, 8}, Cells: [2]int{8, 8}})
			set := points(map[int]material.Model{0: elastic(1000)}, unit(0, tensor.Vec{2.5, 2.5}, v0))
			s := newSolver(cfg, gr, set)

			result, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.StepsTaken).To(Equal(100))

			p := set.At(0)
			Expect(p.Coord[0]).To(BeNumerically("~", 2.5+100*0.01*v0[0], 1e-9))
			Expect(p.Coord[1]).To(BeNumerically("~", 2.5+100*0.01*v0[1], 1e-9))
			Expect(p.Velocity[0]).To(BeNumerically("~", v0[0], 1e-12))
			Expect(p.Velocity[1]).To(BeNumerically("~", v0[1], 1e-12))
		},
		Entry("USL with particle advection", solver.SchemeUSL, solver.AdvectParticle),
		Entry("USL with grid advection", solver.SchemeUSL, solver.AdvectGrid),
		Entry("MUSL", solver.SchemeMUSL, solver.AdvectParticle),
	)

	Describe("a block settling on a fixed floor", func() {
		var (
			gr  *grid.Grid
			set *particle.Set
		)

		settle := func() (*grid.Grid, *particle.Set) {
			gr := structured(generator.MeshSpec{
				Size:       tensor.Vec{1, 1},
				Cells:      [2]int{4, 4},
				Boundaries: [4]generator.Boundary{generator.Bottom: generator.Fixed, generator.Left: generator.Slip, generator.Right: generator.Slip},
			})
			recs, err := generator.Particles([]generator.Block{{
				Max:     tensor.Vec{1, 0.5},
				Spacing: tensor.Vec{0.125, 0.125},
			}}, 0)
			Expect(err).NotTo(HaveOccurred())
			return gr, points(map[int]material.Model{0: elastic(1000)}, recs...)
		}

		BeforeEach(func() {
			cfg.Dt = 1e-4
			cfg.Steps = 50
			gr, set = settle()
		})

		It("conserves mass", func() {
			before := set.TotalMass()
			s := newSolver(cfg, gr, set)
			result, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(set.TotalMass()).To(Equal(before))
			Expect(result.MassDrift).To(BeZero())
		})

		It("does not depend on the worker count beyond rounding", func() {
			serial := newSolver(cfg, gr, set, solver.WithBackend(compute.NewCPUBackend(1, 1)))
			_, err := serial.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			gr2, set2 := settle()
			parallel := newSolver(cfg, gr2, set2, solver.WithBackend(compute.NewCPUBackend(4, 1)))
			_, err = parallel.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < set.Len(); i++ {
				a, b := set.At(i), set2.At(i)
				Expect(b.ID).To(Equal(a.ID))
				Expect(b.Coord[1]).To(BeNumerically("~", a.Coord[1], 1e-12))
				Expect(b.Velocity[1]).To(BeNumerically("~", a.Velocity[1], 1e-10))
				Expect(b.Stress[1]).To(BeNumerically("~", a.Stress[1], 1e-6))
			}
		})

		It("writes snapshots at the output cadence and after the last step", func() {
			cfg.Steps = 10
			cfg.OutputEvery = 5
			w := &recordingWriter{}
			s := newSolver(cfg, gr, set, solver.WithWriter(w))
			counter := &stepCounter{}
			s.AddObserver(counter)
			ke := metrics.NewKineticEnergy()
			s.AddMetric(ke)

			result, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(w.steps).To(Equal([]int{0, 5, 10}))
			Expect(w.sizes).To(HaveEach(set.Len()))
			Expect(result.Snapshots).To(Equal(3))
			Expect(counter.steps).To(Equal([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}))
			Expect(result.Metrics).To(HaveKey("kinetic_energy"))
			Expect(ke.Peak()).To(BeNumerically(">", 0))
			Expect(result.Time).To(BeNumerically("~", 10*cfg.Dt, 1e-15))
			Expect(result.PhaseTiming).To(HaveKey(solver.PhaseStressUpdate))
		})

		It("skips the final snapshot off the cadence", func() {
			cfg.Steps = 7
			cfg.OutputEvery = 5
			w := &recordingWriter{}
			_, err := newSolver(cfg, gr, set, solver.WithWriter(w)).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(w.steps).To(Equal([]int{0, 5}))
		})

		It("reports writer failures", func() {
			_, err := newSolver(cfg, gr, set, solver.WithWriter(failingWriter{})).Run(ctx)
			Expect(err).To(MatchError(ContainSubstring("disk full")))
		})

		It("stops when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			result, err := newSolver(cfg, gr, set).Run(cancelled)
			Expect(err).To(MatchError(context.Canceled))
			Expect(result.StepsTaken).To(BeZero())
		})

		It("runs MUSL with pressure smoothing", func() {
			cfg.Scheme = solver.SchemeMUSL
			cfg.PressureSmoothing = true
			result, err := newSolver(cfg, gr, set).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.StepsTaken).To(Equal(cfg.Steps))
			for _, p := range set.Points() {
				Expect(p.IsFinite()).To(BeTrue())
			}
			Expect(set.KineticEnergy()).To(BeNumerically(">", 0))
		})
	})

	Describe("fatal errors", func() {
		It("aborts when a particle leaves the grid", func() {
			cfg.Gravity = tensor.Vec{}
			cfg.Dt = 0.01
			cfg.Steps = 5
			set := points(map[int]material.Model{0: elastic(1)}, unit(7, tensor.Vec{0.5, 0.5}, tensor.Vec{100, 0}))

			result, err := newSolver(cfg, unitElement(), set).Run(ctx)
			Expect(err).To(MatchError(grid.ErrOutsideDomain))

			var stepErr *solver.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(1))
			Expect(stepErr.Phase).To(Equal(solver.PhaseLocate))
			Expect(stepErr.Error()).To(ContainSubstring("locate"))
			Expect(result.StepsTaken).To(Equal(1))
		})

		It("detects non-finite particle state", func() {
			cfg.Steps = 1
			set := points(map[int]material.Model{0: elastic(1)}, unit(3, tensor.Vec{0.5, 0.5}, tensor.Vec{math.NaN(), 0}))

			err := newSolver(cfg, unitElement(), set).Step(ctx)
			Expect(err).To(MatchError(solver.ErrNonFinite))

			var stepErr *solver.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Phase).To(Equal(solver.PhaseValidate))
		})
	})
})
