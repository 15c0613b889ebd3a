// Package particle implements material points, the Lagrangian carriers of
// mass, momentum and stress, and the set that owns them.
package particle

import (
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/shape"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Record is a particle as supplied by a loader or generator.
type Record struct {
	ID       int
	Material int
	Coord    tensor.Vec
	Spacing  tensor.Vec
	Velocity tensor.Vec
	Stress   tensor.Voigt
	Traction tensor.Vec
}

// MaterialPoint carries its state through the grid. Host element and node
// references are grid arena indices rebound every step by Locate.
type MaterialPoint struct {
	ID         int
	MaterialID int

	Coord   tensor.Vec
	Local   tensor.Vec // ξ in the host element
	Spacing tensor.Vec

	Mass     float64
	Volume   float64
	Density  float64
	Pressure float64
	Velocity tensor.Vec
	Traction tensor.Vec

	Stress tensor.Voigt
	Strain tensor.Strain

	StrainRate          tensor.Strain // raw B
	CentreStrainRate    tensor.Strain // B at the element centre
	BBarStrainRate      tensor.Strain
	VolStrainRate       float64       // trace of the raw rate
	CentreVolStrainRate float64       // node-averaged, sampled at the centre

	N, NCentre         [tensor.NumNodes]float64
	DNDXi, DNDXiCentre [tensor.NumNodes]tensor.Vec
	DNDX, DNDXCentre   [tensor.NumNodes]tensor.Vec
	B, BCentre, BBar   [tensor.NumNodes]tensor.BBlock

	Element int
	Nodes   [tensor.NumNodes]int

	model  material.Model
	stress material.StressFunc
}

func newPoint(r Record) MaterialPoint {
	return MaterialPoint{
		ID:         r.ID,
		MaterialID: r.Material,
		Coord:      r.Coord,
		Spacing:    r.Spacing,
		Velocity:   r.Velocity,
		Stress:     r.Stress,
		Pressure:   -r.Stress.Mean(),
		Traction:   r.Traction,
		Volume:     r.Spacing[0] * r.Spacing[1],
		Element:    -1,
	}
}

// Model returns the constitutive model bound to the point.
func (p *MaterialPoint) Model() material.Model { return p.model }

func (p *MaterialPoint) PointID() int         { return p.ID }
func (p *MaterialPoint) Position() tensor.Vec { return p.Coord }
func (p *MaterialPoint) HostElement() int     { return p.Element }

func (p *MaterialPoint) BindHost(element int, nodes [tensor.NumNodes]int) {
	p.Element = element
	p.Nodes = nodes
}

// ComputeKinematics refreshes every cached shape quantity for the current
// host element.
func (p *MaterialPoint) ComputeKinematics(e *grid.Element) {
	p.ComputeLocalCoordinates(e)
	p.ComputeShapeFunctions(e)
	p.ComputeGlobalDerivatives(e)
	p.ComputeBMatrix()
	p.ComputeBMatrixAtCentre()
	p.ComputeBBarMatrix()
}

func (p *MaterialPoint) ComputeLocalCoordinates(e *grid.Element) {
	p.Local = shape.LocalCoordinates(p.Coord, e.Min, e.Length)
}

// ComputeShapeFunctions evaluates the shape functions at ξ and at the
// element centre.
func (p *MaterialPoint) ComputeShapeFunctions(e *grid.Element) {
	p.N, p.DNDXi = shape.Quad4(&e.NatCoords, p.Local)
	p.NCentre, p.DNDXiCentre = shape.Quad4(&e.NatCoords, tensor.Vec{})
}

func (p *MaterialPoint) ComputeGlobalDerivatives(e *grid.Element) {
	p.DNDX = shape.GlobalDerivatives(&p.DNDXi, e.Length)
	p.DNDXCentre = shape.GlobalDerivatives(&p.DNDXiCentre, e.Length)
}

func bBlock(d tensor.Vec) tensor.BBlock {
	return tensor.BBlock{
		{d[0], 0},
		{0, d[1]},
		{d[1], d[0]},
	}
}

func (p *MaterialPoint) ComputeBMatrix() {
	for i := range p.B {
		p.B[i] = bBlock(p.DNDX[i])
	}
}

func (p *MaterialPoint) ComputeBMatrixAtCentre() {
	for i := range p.BCentre {
		p.BCentre[i] = bBlock(p.DNDXCentre[i])
	}
}

// ComputeBBarMatrix swaps the volumetric part of every normal row for its
// centre value. Shear rows are the raw ones.
func (p *MaterialPoint) ComputeBBarMatrix() {
	for i := range p.BBar {
		p.BBar[i] = p.B[i]
		for r := 0; r < tensor.Dim; r++ {
			for a := 0; a < tensor.Dim; a++ {
				p.BBar[i][r][a] += (p.BCentre[i][a][a] - p.B[i][a][a]) / tensor.Dim
			}
		}
	}
}

// IsFinite reports whether the evolving state holds no NaN or Inf.
func (p *MaterialPoint) IsFinite() bool {
	return p.Coord.IsFinite() && p.Velocity.IsFinite() &&
		p.Stress.IsFinite() && p.Strain.IsFinite() &&
		finite(p.Mass) && finite(p.Volume) && finite(p.Density) && finite(p.Pressure)
}

func finite(x float64) bool {
	return x-x == 0
}
