// Package generator builds structured meshes and particle blocks, the
// preprocessing counterpart of the deck files in package input.
package generator

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/tensor"
)

var (
	ErrInvalidMesh  = errors.New("generator: invalid mesh description")
	ErrInvalidBlock = errors.New("generator: invalid particle block")
)

// Side of the rectangular domain.
type Side int

const (
	Bottom Side = iota
	Right
	Top
	Left
)

func (s Side) String() string {
	switch s {
	case Bottom:
		return "bottom"
	case Right:
		return "right"
	case Top:
		return "top"
	case Left:
		return "left"
	}
	return "unknown"
}

// Boundary is the velocity condition applied to the nodes of one side.
type Boundary string

const (
	Free  Boundary = "free"
	Slip  Boundary = "slip"  // normal velocity zero
	Fixed Boundary = "fixed" // both components zero
	Lid   Boundary = "lid"   // prescribed tangential velocity, zero normal
)

type MeshSpec struct {
	Origin tensor.Vec
	Size   tensor.Vec
	Cells  [tensor.Dim]int

	// Boundaries is indexed by Side.
	Boundaries  [4]Boundary
	LidVelocity float64
	// FreeSurfacePressure pins the pressure of the nodes on free sides.
	FreeSurfacePressure bool
}

type Mesh struct {
	Nodes               []grid.NodeRecord
	Elements            []grid.ElementRecord
	VelocityConstraints []grid.VelocityConstraint
	PressureConstraints []grid.PressureConstraint
	Spacing             tensor.Vec
}

// StructuredMesh lays out nodes row by row from the origin, numbers
// elements counter-clockwise from their lower-left node and lists the
// eight surrounding elements as neighbours.
func StructuredMesh(spec MeshSpec) (*Mesh, error) {
	nx, ny := spec.Cells[0], spec.Cells[1]
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("%w: cells %v", ErrInvalidMesh, spec.Cells)
	}
	if !(spec.Size[0] > 0 && spec.Size[1] > 0) {
		return nil, fmt.Errorf("%w: size %v", ErrInvalidMesh, spec.Size)
	}
	h := tensor.Vec{spec.Size[0] / float64(nx), spec.Size[1] / float64(ny)}
	m := &Mesh{Spacing: h}

	cols := nx + 1
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			m.Nodes = append(m.Nodes, grid.NodeRecord{
				ID:    j*cols + i,
				Coord: tensor.Vec{spec.Origin[0] + float64(i)*h[0], spec.Origin[1] + float64(j)*h[1]},
			})
		}
	}

	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			n0 := j*cols + i
			e := grid.ElementRecord{
				ID:    j*nx + i,
				Nodes: [tensor.NumNodes]int{n0, n0 + 1, n0 + cols + 1, n0 + cols},
			}
			for dj := -1; dj <= 1; dj++ {
				for di := -1; di <= 1; di++ {
					ii, jj := i+di, j+dj
					if (di == 0 && dj == 0) || ii < 0 || jj < 0 || ii >= nx || jj >= ny {
						continue
					}
					e.Neighbours = append(e.Neighbours, jj*nx+ii)
				}
			}
			m.Elements = append(m.Elements, e)
		}
	}

	// lid sides go last so they own the corner nodes
	for _, lid := range []bool{false, true} {
		for side := Bottom; side <= Left; side++ {
			b := spec.Boundaries[side]
			if b == "" {
				b = Free
			}
			if (b == Lid) != lid {
				continue
			}
			if err := m.constrain(side, b, spec, nx, ny); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func sideNodes(side Side, nx, ny int) []int {
	cols := nx + 1
	var ids []int
	switch side {
	case Bottom:
		for i := 0; i <= nx; i++ {
			ids = append(ids, i)
		}
	case Top:
		for i := 0; i <= nx; i++ {
			ids = append(ids, ny*cols+i)
		}
	case Left:
		for j := 0; j <= ny; j++ {
			ids = append(ids, j*cols)
		}
	case Right:
		for j := 0; j <= ny; j++ {
			ids = append(ids, j*cols+nx)
		}
	}
	return ids
}

func (m *Mesh) constrain(side Side, b Boundary, spec MeshSpec, nx, ny int) error {
	normal := 1
	if side == Left || side == Right {
		normal = 0
	}
	tangent := 1 - normal

	for _, id := range sideNodes(side, nx, ny) {
		switch b {
		case Free:
			if spec.FreeSurfacePressure {
				m.PressureConstraints = append(m.PressureConstraints, grid.PressureConstraint{Node: id})
			}
		case Slip:
			m.VelocityConstraints = append(m.VelocityConstraints, grid.VelocityConstraint{Node: id, Axis: normal})
		case Fixed:
			m.VelocityConstraints = append(m.VelocityConstraints,
				grid.VelocityConstraint{Node: id, Axis: 0},
				grid.VelocityConstraint{Node: id, Axis: 1})
		case Lid:
			m.VelocityConstraints = append(m.VelocityConstraints,
				grid.VelocityConstraint{Node: id, Axis: normal},
				grid.VelocityConstraint{Node: id, Axis: tangent, Value: spec.LidVelocity})
		default:
			return fmt.Errorf("%w: boundary %q on %s side", ErrInvalidMesh, b, side)
		}
	}
	return nil
}

// Bounds returns the min and max corners of the mesh.
func (m *Mesh) Bounds() (tensor.Vec, tensor.Vec) {
	lo := tensor.Vec{math.Inf(1), math.Inf(1)}
	hi := tensor.Vec{math.Inf(-1), math.Inf(-1)}
	for _, n := range m.Nodes {
		for a := 0; a < tensor.Dim; a++ {
			lo[a] = math.Min(lo[a], n.Coord[a])
			hi[a] = math.Max(hi[a], n.Coord[a])
		}
	}
	return lo, hi
}
