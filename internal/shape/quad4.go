// Package shape evaluates bilinear quadrilateral shape functions on
// axis-aligned elements.
package shape

import "github.com/san-kum/mpmsim/internal/tensor"

// LocalCoordinates maps x into the reference square [-1, 1]² of the
// element whose lower corner is min and edge lengths are length.
func LocalCoordinates(x, min, length tensor.Vec) tensor.Vec {
	var xi tensor.Vec
	for a := 0; a < tensor.Dim; a++ {
		xi[a] = 2.0*(x[a]-min[a])/length[a] - 1.0
	}
	return xi
}

// Quad4 returns the shape functions and their natural derivatives at xi.
// nat holds the (±1, ±1) natural coordinates of each element node, so the
// node ordering of the element is free.
func Quad4(nat *[tensor.NumNodes]tensor.Vec, xi tensor.Vec) (n [tensor.NumNodes]float64, dndxi [tensor.NumNodes]tensor.Vec) {
	for i := 0; i < tensor.NumNodes; i++ {
		fx := 1.0 + xi[0]*nat[i][0]
		fy := 1.0 + xi[1]*nat[i][1]
		n[i] = 0.25 * fx * fy
		dndxi[i][0] = 0.25 * nat[i][0] * fy
		dndxi[i][1] = 0.25 * nat[i][1] * fx
	}
	return n, dndxi
}

// GlobalDerivatives converts natural derivatives to physical ones. The
// Jacobian of an axis-aligned element is diagonal with entries L/2.
func GlobalDerivatives(dndxi *[tensor.NumNodes]tensor.Vec, length tensor.Vec) [tensor.NumNodes]tensor.Vec {
	var g [tensor.NumNodes]tensor.Vec
	for i := 0; i < tensor.NumNodes; i++ {
		for a := 0; a < tensor.Dim; a++ {
			g[i][a] = dndxi[i][a] * 2.0 / length[a]
		}
	}
	return g
}
