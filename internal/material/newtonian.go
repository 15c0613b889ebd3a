package material

import (
	"fmt"

	"github.com/san-kum/mpmsim/internal/tensor"
)

func init() {
	allocators["newtonian"] = newNewtonian
}

// Newtonian is a weakly compressible viscous fluid. Pressure follows a
// stiff bulk modulus; the deviatoric stress is 2μ times the deviatoric
// strain rate.
type Newtonian struct {
	density     float64
	Viscosity   float64
	BulkModulus float64
	Dt          float64
}

func newNewtonian(p Params, dt float64) (Model, error) {
	rho, err := p.positive("density")
	if err != nil {
		return nil, err
	}
	mu, err := p.Get("viscosity")
	if err != nil {
		return nil, err
	}
	k, err := p.positive("bulk_modulus")
	if err != nil {
		return nil, err
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: time step %g must be positive", ErrInvalidParam, dt)
	}
	return &Newtonian{density: rho, Viscosity: mu, BulkModulus: k, Dt: dt}, nil
}

func (m *Newtonian) Name() string     { return "newtonian" }
func (m *Newtonian) Density() float64 { return m.density }

// ComputeStress rebuilds the stress from the pressure and the strain rate
// dStrain/dt. Out-of-plane shear stays zero.
func (m *Newtonian) ComputeStress(dStrain tensor.Strain, dVolStrain float64, stress *tensor.Voigt, pressure *float64) {
	*pressure -= m.BulkModulus * dVolStrain

	rate := dStrain.Scale(1 / m.Dt)
	tr := rate[0] + rate[1]
	p, mu := *pressure, m.Viscosity

	stress[0] = -p + 2*mu*(rate[0]-tr/3)
	stress[1] = -p + 2*mu*(rate[1]-tr/3)
	stress[2] = -p + 2*mu*(-tr/3)
	stress[3] = mu * rate[2]
	stress[4] = 0
	stress[5] = 0
}
