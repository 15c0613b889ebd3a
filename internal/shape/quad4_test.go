package shape

import (
	"testing"

	"github.com/san-kum/mpmsim/internal/tensor"
	"github.com/stretchr/testify/assert"
)

var ccw = [tensor.NumNodes]tensor.Vec{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

func TestLocalCoordinates(t *testing.T) {
	min := tensor.Vec{2, 4}
	length := tensor.Vec{0.5, 2}

	assert.Equal(t, tensor.Vec{-1, -1}, LocalCoordinates(min, min, length))
	assert.Equal(t, tensor.Vec{1, 1}, LocalCoordinates(tensor.Vec{2.5, 6}, min, length))

	xi := LocalCoordinates(tensor.Vec{2.25, 5}, min, length)
	assert.InDelta(t, 0.0, xi[0], 1e-14)
	assert.InDelta(t, 0.0, xi[1], 1e-14)
}

func TestQuad4PartitionOfUnity(t *testing.T) {
	length := tensor.Vec{0.3, 1.7}
	points := []tensor.Vec{
		{0, 0}, {-1, -1}, {1, 1}, {0.37, -0.81}, {-0.999, 0.5}, {0.25, 0.75},
	}
	for _, xi := range points {
		n, dn := Quad4(&ccw, xi)
		g := GlobalDerivatives(&dn, length)

		sum := 0.0
		var gsum tensor.Vec
		for i := range n {
			sum += n[i]
			gsum = gsum.Add(g[i])
		}
		assert.InDelta(t, 1.0, sum, 1e-14, "xi=%v", xi)
		assert.InDelta(t, 0.0, gsum[0], 1e-13, "xi=%v", xi)
		assert.InDelta(t, 0.0, gsum[1], 1e-13, "xi=%v", xi)
	}
}

func TestQuad4Kronecker(t *testing.T) {
	for j, corner := range ccw {
		n, _ := Quad4(&ccw, corner)
		for i := range n {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, n[i], 1e-15)
		}
	}
}

func TestQuad4Centre(t *testing.T) {
	n, dn := Quad4(&ccw, tensor.Vec{})
	g := GlobalDerivatives(&dn, tensor.Vec{2, 4})
	for i := range n {
		assert.Equal(t, 0.25, n[i])
		assert.InDelta(t, 0.25*ccw[i][0], g[i][0], 1e-15)
		assert.InDelta(t, 0.125*ccw[i][1], g[i][1], 1e-15)
	}
}

func TestQuad4NodeOrderIndependent(t *testing.T) {
	shuffled := [tensor.NumNodes]tensor.Vec{ccw[2], ccw[0], ccw[3], ccw[1]}
	xi := tensor.Vec{0.2, -0.6}
	a, _ := Quad4(&ccw, xi)
	b, _ := Quad4(&shuffled, xi)
	assert.InDelta(t, a[2], b[0], 1e-15)
	assert.InDelta(t, a[0], b[1], 1e-15)
	assert.InDelta(t, a[3], b[2], 1e-15)
	assert.InDelta(t, a[1], b[3], 1e-15)
}
