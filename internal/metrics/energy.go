package metrics

import (
	"math"

	"github.com/san-kum/mpmsim/internal/particle"
)

// KineticEnergy tracks Σ ½ m |v|² of the material points. Value is the
// mean over all observations; Last and Peak expose the other views.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
	last    float64
	peak    float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(points *particle.Set, t float64) {
	ke := points.KineticEnergy()
	e.total += ke
	e.last = ke
	e.peak = math.Max(e.peak, ke)
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *KineticEnergy) Last() float64 { return e.last }
func (e *KineticEnergy) Peak() float64 { return e.peak }

func (e *KineticEnergy) Reset() {
	e.total = 0
	e.last = 0
	e.peak = 0
	e.samples = 0
}

// MassDrift is the largest relative deviation of the total particle mass
// from its first observed value.
type MassDrift struct {
	name        string
	initialMass float64
	maxDrift    float64
	samples     int
}

func NewMassDrift() *MassDrift {
	return &MassDrift{name: "mass_drift"}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(points *particle.Set, t float64) {
	mass := points.TotalMass()
	if m.samples == 0 {
		m.initialMass = mass
	}
	m.samples++

	if m.initialMass != 0 {
		drift := math.Abs(mass-m.initialMass) / math.Abs(m.initialMass)
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *MassDrift) Value() float64 {
	return m.maxDrift
}

func (m *MassDrift) Reset() {
	m.initialMass = 0
	m.maxDrift = 0
	m.samples = 0
}
