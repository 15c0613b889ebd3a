package grid

import "github.com/san-kum/mpmsim/internal/tensor"

// DefaultMassTolerance is the nodal mass below which a node is treated as
// empty for the step.
const DefaultMassTolerance = 1e-12

// Node is a grid vertex. Coordinates and constraints persist for the run;
// every other field is a per-step accumulator or derived from them.
type Node struct {
	ID    int
	Coord tensor.Vec

	Mass          float64
	Volume        float64
	Momentum      tensor.Vec
	BeginMomentum tensor.Vec // scattered momentum, kept through the solve
	EndMomentum   tensor.Vec // momentum remapped from updated particles
	ExtForce      tensor.Vec
	IntForce      tensor.Vec
	Pressure      float64 // Σ N·p·m until NodalPressure is called
	VolStrainRate float64 // Σ N·V·ε̇v

	Velocity     tensor.Vec
	Acceleration tensor.Vec

	VelConstrained      [tensor.Dim]bool
	VelConstraint       tensor.Vec
	PressureConstrained bool
	PressureConstraint  float64
}

// Reset zeroes the per-step state.
func (n *Node) Reset() {
	n.Mass = 0
	n.Volume = 0
	n.Momentum = tensor.Vec{}
	n.BeginMomentum = tensor.Vec{}
	n.EndMomentum = tensor.Vec{}
	n.ExtForce = tensor.Vec{}
	n.IntForce = tensor.Vec{}
	n.Pressure = 0
	n.VolStrainRate = 0
	n.Velocity = tensor.Vec{}
	n.Acceleration = tensor.Vec{}
}

// SetVelocityConstraint prescribes the velocity along one axis.
func (n *Node) SetVelocityConstraint(axis int, value float64) {
	n.VelConstrained[axis] = true
	n.VelConstraint[axis] = value
}

// SetPressureConstraint prescribes the nodal pressure (free surface).
func (n *Node) SetPressureConstraint(value float64) {
	n.PressureConstrained = true
	n.PressureConstraint = value
}

// HasMass reports whether the node carries enough mass to be solved.
func (n *Node) HasMass(tol float64) bool {
	return n.Mass > tol
}

// ComputeVelocity sets velocity = momentum/mass for massive nodes and
// enforces their constraints. Empty nodes keep a zero velocity, even when
// constrained.
func (n *Node) ComputeVelocity(tol float64) {
	n.Velocity = tensor.Vec{}
	if !n.HasMass(tol) {
		return
	}
	n.Velocity = n.Momentum.Scale(1.0 / n.Mass)
	n.applyVelocityConstraint()
}

// ComputeVelocityFromEndMomentum recomputes the velocity from the momentum
// remapped at the end of the step (MUSL).
func (n *Node) ComputeVelocityFromEndMomentum(tol float64) {
	n.Velocity = tensor.Vec{}
	if !n.HasMass(tol) {
		return
	}
	n.Velocity = n.EndMomentum.Scale(1.0 / n.Mass)
	n.applyVelocityConstraint()
}

// Solve integrates the nodal momentum equation over dt. With gravityAtNodes
// the body force m·g is added here instead of being scattered by particles.
// Constraints are applied after the unconstrained update and win any
// conflict with it. Empty nodes are left at rest and unconstrained.
func (n *Node) Solve(dt, tol float64, gravity tensor.Vec, gravityAtNodes bool) {
	n.BeginMomentum = n.Momentum
	n.Acceleration = tensor.Vec{}
	if !n.HasMass(tol) {
		n.Velocity = tensor.Vec{}
		return
	}
	if gravityAtNodes {
		n.ExtForce = n.ExtForce.Add(gravity.Scale(n.Mass))
	}
	force := n.ExtForce.Add(n.IntForce)
	n.Acceleration = force.Scale(1.0 / n.Mass)
	n.Velocity = n.Velocity.Add(n.Acceleration.Scale(dt))

	n.applyVelocityConstraint()
	n.Momentum = n.Velocity.Scale(n.Mass)
}

// NodalVolStrainRate returns the volume-averaged volumetric strain rate.
// The average exists wherever the node carries mass; tol is a mass
// tolerance and is never compared with the volume.
func (n *Node) NodalVolStrainRate(tol float64) float64 {
	if !n.HasMass(tol) || !(n.Volume > 0) {
		return 0
	}
	return n.VolStrainRate / n.Volume
}

// NodalPressure returns the mass-averaged pressure, overridden by the
// pressure constraint when one is set.
func (n *Node) NodalPressure(tol float64) float64 {
	if n.PressureConstrained {
		return n.PressureConstraint
	}
	if !n.HasMass(tol) {
		return 0
	}
	return n.Pressure / n.Mass
}

func (n *Node) applyVelocityConstraint() {
	for a := 0; a < tensor.Dim; a++ {
		if n.VelConstrained[a] {
			n.Velocity[a] = n.VelConstraint[a]
			n.Acceleration[a] = 0
		}
	}
}
