// Package tensor holds the fixed-size vector and Voigt types shared by the
// grid, the material points and the constitutive models.
//
// The solver is two-dimensional (bilinear quadrilaterals) while stresses are
// carried in full 3D Voigt form so plane-strain out-of-plane components are
// kept:
//
//   - [Vec]: spatial vector (x, y)
//   - [Strain]: in-plane strain (xx, yy, engineering xy)
//   - [Voigt]: stress (xx, yy, zz, xy, yz, zx)
//   - [BBlock]: strain-displacement block of one node
package tensor

import "math"

const (
	Dim       = 2 // spatial dimension
	NumNodes  = 4 // nodes per element (bilinear quadrilateral)
	StrainDof = 3 // independent in-plane strain components
)

type Vec [Dim]float64

type Strain [StrainDof]float64

type Voigt [6]float64

// BBlock relates the velocity of one node to the strain rate:
//
//	[dN/dx    0  ]
//	[  0    dN/dy]
//	[dN/dy  dN/dx]
type BBlock [StrainDof][Dim]float64

func (v Vec) Add(o Vec) Vec {
	return Vec{v[0] + o[0], v[1] + o[1]}
}

func (v Vec) Sub(o Vec) Vec {
	return Vec{v[0] - o[0], v[1] - o[1]}
}

func (v Vec) Scale(f float64) Vec {
	return Vec{v[0] * f, v[1] * f}
}

func (v Vec) Dot(o Vec) float64 {
	return v[0]*o[0] + v[1]*o[1]
}

func (v Vec) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vec) IsFinite() bool {
	return finite(v[:])
}

// Trace returns the volumetric part of an in-plane strain (zz is zero).
func (s Strain) Trace() float64 {
	return s[0] + s[1]
}

func (s Strain) Scale(f float64) Strain {
	return Strain{s[0] * f, s[1] * f, s[2] * f}
}

func (s Strain) Add(o Strain) Strain {
	return Strain{s[0] + o[0], s[1] + o[1], s[2] + o[2]}
}

func (s Strain) IsFinite() bool {
	return finite(s[:])
}

// ToVoigt embeds the in-plane strain in a 6-component vector with zero
// out-of-plane terms.
func (s Strain) ToVoigt() Voigt {
	return Voigt{s[0], s[1], 0, s[2], 0, 0}
}

// Principal returns the in-plane principal values, largest first.
func (s Strain) Principal() Vec {
	c := 0.5 * (s[0] + s[1])
	r := math.Hypot(0.5*(s[0]-s[1]), 0.5*s[2])
	return Vec{c + r, c - r}
}

// Mean returns the mean normal stress (positive in tension).
func (v Voigt) Mean() float64 {
	return (v[0] + v[1] + v[2]) / 3.0
}

func (v Voigt) IsFinite() bool {
	return finite(v[:])
}

// Mul returns B·v, the strain rate contributed by one node velocity.
func (b *BBlock) Mul(v Vec) Strain {
	var s Strain
	for r := 0; r < StrainDof; r++ {
		s[r] = b[r][0]*v[0] + b[r][1]*v[1]
	}
	return s
}

// MulTransposeStress returns Bᵀ·σ restricted to the in-plane components.
func (b *BBlock) MulTransposeStress(sig Voigt) Vec {
	in := [StrainDof]float64{sig[0], sig[1], sig[3]}
	var f Vec
	for c := 0; c < Dim; c++ {
		for r := 0; r < StrainDof; r++ {
			f[c] += b[r][c] * in[r]
		}
	}
	return f
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
