package grid

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/tensor"
)

// Element is a bilinear quadrilateral cell. Topology and geometry are
// fixed once the grid is built; only Particles changes between steps.
type Element struct {
	ID         int
	Nodes      [tensor.NumNodes]int // node indices
	Neighbours []int                // element indices

	Min, Max tensor.Vec
	Centre   tensor.Vec
	Length   tensor.Vec
	Volume   float64

	// NatCoords holds the (±1, ±1) reference position of each node.
	NatCoords [tensor.NumNodes]tensor.Vec

	Particles int // resident material points this step
}

// computeGeometry derives the bounding box, centre, length, volume and the
// natural coordinates of the element nodes.
func (e *Element) computeGeometry(nodes []Node) error {
	e.Min = tensor.Vec{math.Inf(1), math.Inf(1)}
	e.Max = tensor.Vec{math.Inf(-1), math.Inf(-1)}
	for _, ni := range e.Nodes {
		c := nodes[ni].Coord
		for a := 0; a < tensor.Dim; a++ {
			e.Min[a] = math.Min(e.Min[a], c[a])
			e.Max[a] = math.Max(e.Max[a], c[a])
		}
	}

	e.Volume = 1.0
	for a := 0; a < tensor.Dim; a++ {
		e.Length[a] = e.Max[a] - e.Min[a]
		e.Centre[a] = 0.5 * (e.Min[a] + e.Max[a])
		if !(e.Length[a] > 0) {
			return fmt.Errorf("%w: element %d has zero extent on axis %d", ErrDegenerateElement, e.ID, a)
		}
		e.Volume *= e.Length[a]
	}

	seen := make(map[tensor.Vec]bool, tensor.NumNodes)
	tol := 1e-9 * math.Max(e.Length[0], e.Length[1])
	for i, ni := range e.Nodes {
		c := nodes[ni].Coord
		for a := 0; a < tensor.Dim; a++ {
			switch {
			case math.Abs(c[a]-e.Min[a]) <= tol:
				e.NatCoords[i][a] = -1
			case math.Abs(c[a]-e.Max[a]) <= tol:
				e.NatCoords[i][a] = 1
			default:
				return fmt.Errorf("%w: element %d node %d is not a corner", ErrDegenerateElement, e.ID, nodes[ni].ID)
			}
		}
		if seen[e.NatCoords[i]] {
			return fmt.Errorf("%w: element %d repeats corner %v", ErrDegenerateElement, e.ID, e.NatCoords[i])
		}
		seen[e.NatCoords[i]] = true
	}
	return nil
}

// Contains reports whether x lies in the closed bounding box of the element.
func (e *Element) Contains(x tensor.Vec) bool {
	for a := 0; a < tensor.Dim; a++ {
		tol := 1e-12 * e.Length[a]
		if x[a] < e.Min[a]-tol || x[a] > e.Max[a]+tol {
			return false
		}
	}
	return true
}
