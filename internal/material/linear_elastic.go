package material

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/mpmsim/internal/tensor"
)

func init() {
	allocators["linear_elastic"] = newLinearElastic
}

// LinearElastic is an isotropic linear elastic solid.
type LinearElastic struct {
	density float64
	E, Nu   float64

	// De is the 6×6 elastic stiffness in Voigt order. Read-only after
	// construction, so concurrent stress updates may share it.
	De *mat.Dense
}

func newLinearElastic(p Params, _ float64) (Model, error) {
	rho, err := p.positive("density")
	if err != nil {
		return nil, err
	}
	e, err := p.positive("youngs_modulus")
	if err != nil {
		return nil, err
	}
	nu, err := p.Get("poisson_ratio")
	if err != nil {
		return nil, err
	}
	if nu <= -1 || nu >= 0.5 {
		return nil, fmt.Errorf("%w: poisson_ratio = %g outside (-1, 0.5)", ErrInvalidParam, nu)
	}
	return NewLinearElastic(rho, e, nu), nil
}

func NewLinearElastic(density, e, nu float64) *LinearElastic {
	m := &LinearElastic{density: density, E: e, Nu: nu}
	m.De = elasticStiffness(e, nu)
	return m
}

func elasticStiffness(e, nu float64) *mat.Dense {
	lambda := e * nu / ((1 + nu) * (1 - 2*nu))
	g := e / (2 * (1 + nu))

	de := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			de.Set(i, j, lambda)
		}
		de.Set(i, i, lambda+2*g)
		de.Set(i+3, i+3, g)
	}
	return de
}

func (m *LinearElastic) Name() string     { return "linear_elastic" }
func (m *LinearElastic) Density() float64 { return m.density }

// ComputeStress adds De·dε to the stress and sets the pressure to minus the
// mean stress. The volumetric increment is not used by this law.
func (m *LinearElastic) ComputeStress(dStrain tensor.Strain, _ float64, stress *tensor.Voigt, pressure *float64) {
	de := dStrain.ToVoigt()
	raw := m.De.RawMatrix()
	for i := range stress {
		row := raw.Data[i*raw.Stride : i*raw.Stride+6]
		var ds float64
		for j, d := range row {
			ds += d * de[j]
		}
		stress[i] += ds
	}
	*pressure = -stress.Mean()
}
