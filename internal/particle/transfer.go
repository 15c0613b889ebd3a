package particle

import (
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// MapMassMomentum scatters N·m, N·V and N·m·v.
func (p *MaterialPoint) MapMassMomentum(acc *grid.Accumulator) {
	mv := p.Velocity.Scale(p.Mass)
	for i, ni := range p.Nodes {
		acc.Add(ni, grid.SlotMass, p.N[i]*p.Mass)
		acc.Add(ni, grid.SlotVolume, p.N[i]*p.Volume)
		acc.AddVec(ni, grid.SlotMomentum, mv.Scale(p.N[i]))
	}
}

// MapForces scatters the body force (when applied at particles), the
// surface traction and V·Bᵀσ. The grid subtracts the last term when the
// accumulator is applied.
func (p *MaterialPoint) MapForces(acc *grid.Accumulator, gravity tensor.Vec, gravityAtParticles bool) {
	ext := p.Traction
	if gravityAtParticles {
		ext = ext.Add(gravity.Scale(p.Mass))
	}
	for i, ni := range p.Nodes {
		acc.AddVec(ni, grid.SlotExtForce, ext.Scale(p.N[i]))
		acc.AddVec(ni, grid.SlotIntForce, p.B[i].MulTransposeStress(p.Stress).Scale(p.Volume))
	}
}

// ComputeStrainRates gathers the nodal velocities through the raw, centre
// and B-bar matrices.
func (p *MaterialPoint) ComputeStrainRates(nodes []grid.Node) {
	var raw, centre, bbar tensor.Strain
	for i, ni := range p.Nodes {
		v := nodes[ni].Velocity
		raw = raw.Add(p.B[i].Mul(v))
		centre = centre.Add(p.BCentre[i].Mul(v))
		bbar = bbar.Add(p.BBar[i].Mul(v))
	}
	p.StrainRate = raw
	p.CentreStrainRate = centre
	p.BBarStrainRate = bbar
	p.VolStrainRate = raw.Trace()
}

// MapVolStrainRate scatters N·V·ε̇v for volume averaging.
func (p *MaterialPoint) MapVolStrainRate(acc *grid.Accumulator) {
	w := p.Volume * p.VolStrainRate
	for i, ni := range p.Nodes {
		acc.Add(ni, grid.SlotScalar, p.N[i]*w)
	}
}

// GatherCentreVolStrainRate samples the volume-averaged nodal rate at the
// host element centre.
func (p *MaterialPoint) GatherCentreVolStrainRate(nodes []grid.Node, tol float64) {
	rate := 0.0
	for i, ni := range p.Nodes {
		rate += p.NCentre[i] * nodes[ni].NodalVolStrainRate(tol)
	}
	p.CentreVolStrainRate = rate
}

// ComputeStrain integrates the B-bar strain rate over dt.
func (p *MaterialPoint) ComputeStrain(dt float64) {
	p.Strain = p.Strain.Add(p.BBarStrainRate.Scale(dt))
}

// ComputeStress passes the B-bar increment and the averaged volumetric
// increment to the bound constitutive law.
func (p *MaterialPoint) ComputeStress(dt float64) error {
	if p.stress == nil {
		return ErrUnassigned
	}
	p.stress(p.BBarStrainRate.Scale(dt), p.CentreVolStrainRate*dt, &p.Stress, &p.Pressure)
	return nil
}

// UpdateVelocity adds dt·Σ N·a.
func (p *MaterialPoint) UpdateVelocity(nodes []grid.Node, dt float64) {
	var a tensor.Vec
	for i, ni := range p.Nodes {
		a = a.Add(nodes[ni].Acceleration.Scale(p.N[i]))
	}
	p.Velocity = p.Velocity.Add(a.Scale(dt))
}

// MapEndMomentum scatters N·m·v with the updated velocity.
func (p *MaterialPoint) MapEndMomentum(acc *grid.Accumulator) {
	mv := p.Velocity.Scale(p.Mass)
	for i, ni := range p.Nodes {
		acc.AddVec(ni, 0, mv.Scale(p.N[i]))
	}
}

// UpdatePosition moves the point with its own velocity, or with the
// interpolated nodal velocity when fromGrid is set.
func (p *MaterialPoint) UpdatePosition(nodes []grid.Node, dt float64, fromGrid bool) {
	v := p.Velocity
	if fromGrid {
		v = tensor.Vec{}
		for i, ni := range p.Nodes {
			v = v.Add(nodes[ni].Velocity.Scale(p.N[i]))
		}
	}
	p.Coord = p.Coord.Add(v.Scale(dt))
}

// UpdateDensity applies ρ ← ρ/(1 + ε̇v·dt) and keeps the mass fixed.
func (p *MaterialPoint) UpdateDensity(dt float64) {
	p.Density /= 1 + p.CentreVolStrainRate*dt
	p.Volume = p.Mass / p.Density
}

// MapPressure scatters N·m·p for nodal pressure smoothing.
func (p *MaterialPoint) MapPressure(acc *grid.Accumulator) {
	w := p.Mass * p.Pressure
	for i, ni := range p.Nodes {
		acc.Add(ni, grid.SlotScalar, p.N[i]*w)
	}
}

// GatherPressure replaces the pressure with the interpolated nodal one and
// shifts the normal stresses by the same amount.
func (p *MaterialPoint) GatherPressure(nodes []grid.Node, tol float64) {
	smoothed := 0.0
	for i, ni := range p.Nodes {
		smoothed += p.N[i] * nodes[ni].NodalPressure(tol)
	}
	dp := smoothed - p.Pressure
	for k := 0; k < 3; k++ {
		p.Stress[k] -= dp
	}
	p.Pressure = smoothed
}

// Principal returns the in-plane principal strains, largest first.
func (p *MaterialPoint) Principal() tensor.Vec {
	return p.Strain.Principal()
}
