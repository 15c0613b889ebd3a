package material

func init() {
	allocators["mohr_coulomb"] = newMohrCoulomb
}

// MohrCoulomb carries the constants of a Mohr-Coulomb soil. It has no
// stress update, so Resolve rejects it and no point can be assigned to it.
type MohrCoulomb struct {
	density  float64
	E, Nu    float64
	Cohesion float64
	Friction float64 // degrees
	Dilation float64 // degrees
}

func newMohrCoulomb(p Params, _ float64) (Model, error) {
	rho, err := p.positive("density")
	if err != nil {
		return nil, err
	}
	m := &MohrCoulomb{density: rho}
	// the remaining constants are optional until a return mapping exists
	m.E = p["youngs_modulus"]
	m.Nu = p["poisson_ratio"]
	m.Cohesion = p["cohesion"]
	m.Friction = p["friction_angle"]
	m.Dilation = p["dilation_angle"]
	return m, nil
}

func (m *MohrCoulomb) Name() string     { return "mohr_coulomb" }
func (m *MohrCoulomb) Density() float64 { return m.density }
