package grid

import "github.com/san-kum/mpmsim/internal/tensor"

// Layout names the quantities carried by one particle-to-node scatter pass.
type Layout int

const (
	LayoutMassMomentum  Layout = iota // mass, volume, momentum
	LayoutForces                      // external force, internal force (as V·Bᵀσ)
	LayoutVolStrainRate               // N·V·ε̇v
	LayoutEndMomentum                 // remapped momentum
	LayoutPressure                    // N·m·p
)

// Slot offsets within a node record.
const (
	SlotMass     = 0
	SlotVolume   = 1
	SlotMomentum = 2

	SlotExtForce = 0
	SlotIntForce = tensor.Dim

	SlotScalar = 0
)

func (l Layout) String() string {
	switch l {
	case LayoutMassMomentum:
		return "mass_momentum"
	case LayoutForces:
		return "forces"
	case LayoutVolStrainRate:
		return "vol_strain_rate"
	case LayoutEndMomentum:
		return "end_momentum"
	case LayoutPressure:
		return "pressure"
	}
	return "unknown"
}

// Stride returns the number of slots per node.
func (l Layout) Stride() int {
	switch l {
	case LayoutMassMomentum:
		return 2 + tensor.Dim
	case LayoutForces:
		return 2 * tensor.Dim
	case LayoutEndMomentum:
		return tensor.Dim
	default:
		return 1
	}
}

// Accumulator is a private per-node buffer that particles scatter into.
// Workers each own one and the buffers are merged after the scatter
// barrier, so no node field is written concurrently.
type Accumulator struct {
	layout Layout
	stride int
	data   []float64
}

func NewAccumulator(l Layout, numNodes int) *Accumulator {
	return &Accumulator{
		layout: l,
		stride: l.Stride(),
		data:   make([]float64, numNodes*l.Stride()),
	}
}

func (a *Accumulator) Layout() Layout { return a.layout }

// NumNodes returns the node count the buffer was sized for.
func (a *Accumulator) NumNodes() int { return len(a.data) / a.stride }

func (a *Accumulator) Add(node, slot int, v float64) {
	a.data[node*a.stride+slot] += v
}

func (a *Accumulator) AddVec(node, slot int, v tensor.Vec) {
	base := node*a.stride + slot
	for d := 0; d < tensor.Dim; d++ {
		a.data[base+d] += v[d]
	}
}

func (a *Accumulator) Get(node, slot int) float64 {
	return a.data[node*a.stride+slot]
}

func (a *Accumulator) vec(node, slot int) tensor.Vec {
	base := node*a.stride + slot
	return tensor.Vec{a.data[base], a.data[base+1]}
}

// Merge adds o into a. Both must share the layout and node count.
func (a *Accumulator) Merge(o *Accumulator) {
	for i, v := range o.data {
		a.data[i] += v
	}
}

func (a *Accumulator) Reset() {
	for i := range a.data {
		a.data[i] = 0
	}
}
