// Package material implements the constitutive laws of the solver.
//
// Every model reports its reference density. Models that can advance the
// stress state also implement [StressUpdater]; the capability is resolved
// once per material point with [Resolve] and the returned [StressFunc] is
// what the step loop calls.
package material

import (
	"fmt"
	"sort"

	"github.com/san-kum/mpmsim/internal/tensor"
)

// Model is a stateless constitutive law holding fixed material constants.
type Model interface {
	Name() string
	Density() float64
}

// StressUpdater advances stress and pressure for a strain increment and a
// volumetric strain increment.
type StressUpdater interface {
	ComputeStress(dStrain tensor.Strain, dVolStrain float64, stress *tensor.Voigt, pressure *float64)
}

// StressFunc is the resolved stress update of one model.
type StressFunc func(dStrain tensor.Strain, dVolStrain float64, stress *tensor.Voigt, pressure *float64)

// Resolve returns the stress update of m, or ErrNoStressUpdate when the
// model has none.
func Resolve(m Model) (StressFunc, error) {
	su, ok := m.(StressUpdater)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoStressUpdate, m.Name())
	}
	return su.ComputeStress, nil
}

// Params maps constant names to values.
type Params map[string]float64

// Get returns the named constant or ErrMissingParam.
func (p Params) Get(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingParam, name)
	}
	return v, nil
}

func (p Params) positive(name string) (float64, error) {
	v, err := p.Get(name)
	if err != nil {
		return 0, err
	}
	if !(v > 0) {
		return 0, fmt.Errorf("%w: %s = %g must be positive", ErrInvalidParam, name, v)
	}
	return v, nil
}

type allocator func(p Params, dt float64) (Model, error)

// allocators holds all available models; name => allocator
var allocators = map[string]allocator{}

// New builds the named model. dt is the solver time step, used by
// rate-dependent laws.
func New(name string, params Params, dt float64) (Model, error) {
	alloc, ok := allocators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	m, err := alloc(params, dt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// Names lists the registered models.
func Names() []string {
	names := make([]string, 0, len(allocators))
	for name := range allocators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
