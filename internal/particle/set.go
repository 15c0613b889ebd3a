package particle

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/mpmsim/internal/compute"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Set owns every material point, ordered by id.
type Set struct {
	points []MaterialPoint
	byID   map[int]int

	hosts []int // Locate scratch
}

func New(records []Record) (*Set, error) {
	s := &Set{
		points: make([]MaterialPoint, 0, len(records)),
		byID:   make(map[int]int, len(records)),
	}
	for _, r := range records {
		if !(r.Spacing[0] > 0 && r.Spacing[1] > 0) {
			return nil, fmt.Errorf("%w: particle %d", ErrInvalidSpacing, r.ID)
		}
		if _, dup := s.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
		}
		s.byID[r.ID] = -1
		s.points = append(s.points, newPoint(r))
	}
	sort.Slice(s.points, func(i, j int) bool { return s.points[i].ID < s.points[j].ID })
	for i := range s.points {
		s.byID[s.points[i].ID] = i
	}
	s.hosts = make([]int, len(s.points))
	return s, nil
}

// AssignMaterials binds each point to its model, resolving the stress
// update once, and seeds the mass from the model density and the point
// volume.
func (s *Set) AssignMaterials(models map[int]material.Model) error {
	for i := range s.points {
		p := &s.points[i]
		m, ok := models[p.MaterialID]
		if !ok {
			return fmt.Errorf("%w: %d on particle %d", ErrUnknownMaterial, p.MaterialID, p.ID)
		}
		update, err := material.Resolve(m)
		if err != nil {
			return fmt.Errorf("particle %d: %w", p.ID, err)
		}
		p.model = m
		p.stress = update
		p.Density = m.Density()
		p.Mass = p.Density * p.Volume
	}
	return nil
}

func (s *Set) Len() int { return len(s.points) }

func (s *Set) At(i int) *MaterialPoint { return &s.points[i] }

// Points exposes the backing slice; callers may mutate points in place.
func (s *Set) Points() []MaterialPoint { return s.points }

// ByID returns the point with the given id.
func (s *Set) ByID(id int) (*MaterialPoint, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.points[i], true
}

func (s *Set) ForEach(fn func(p *MaterialPoint)) {
	for i := range s.points {
		fn(&s.points[i])
	}
}

// Locate rebinds every point to its host element. The search runs on the
// backend; resident counts are updated afterwards on the calling goroutine.
func (s *Set) Locate(ctx context.Context, g *grid.Grid, be compute.Backend) error {
	err := be.For(ctx, len(s.points), func(start, end int) error {
		for i := start; i < end; i++ {
			p := &s.points[i]
			ei, ok := g.Find(p.Coord, p.Element)
			if !ok {
				return fmt.Errorf("%w: particle %d at (%g, %g)",
					grid.ErrOutsideDomain, p.ID, p.Coord[0], p.Coord[1])
			}
			s.hosts[i] = ei
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i := range s.points {
		s.points[i].BindHost(s.hosts[i], g.Bind(s.hosts[i]))
	}
	return nil
}

func (s *Set) TotalMass() float64 {
	m := make([]float64, len(s.points))
	for i := range s.points {
		m[i] = s.points[i].Mass
	}
	return floats.Sum(m)
}

// KineticEnergy returns Σ ½ m |v|².
func (s *Set) KineticEnergy() float64 {
	e := make([]float64, len(s.points))
	for i := range s.points {
		p := &s.points[i]
		e[i] = 0.5 * p.Mass * p.Velocity.Dot(p.Velocity)
	}
	return floats.Sum(e)
}

// MaxSpeed returns the largest particle speed.
func (s *Set) MaxSpeed() float64 {
	if len(s.points) == 0 {
		return 0
	}
	v := make([]float64, len(s.points))
	for i := range s.points {
		v[i] = s.points[i].Velocity.Norm()
	}
	return floats.Max(v)
}

// Snapshot is the per-point output record.
type Snapshot struct {
	ID        int
	Coord     tensor.Vec
	Velocity  tensor.Vec
	Pressure  float64
	Density   float64
	Stress    tensor.Voigt
	Strain    tensor.Strain
	Principal tensor.Vec
}

// Snapshot returns the output records in id order.
func (s *Set) Snapshot() []Snapshot {
	out := make([]Snapshot, len(s.points))
	for i := range s.points {
		p := &s.points[i]
		out[i] = Snapshot{
			ID:        p.ID,
			Coord:     p.Coord,
			Velocity:  p.Velocity,
			Pressure:  p.Pressure,
			Density:   p.Density,
			Stress:    p.Stress,
			Strain:    p.Strain,
			Principal: p.Principal(),
		}
	}
	return out
}
