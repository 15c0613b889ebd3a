package generator

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Block fills a rectangle with one particle per spacing cell, placed at the
// cell centres.
type Block struct {
	Material int
	Min, Max tensor.Vec
	Spacing  tensor.Vec
	Velocity tensor.Vec

	// WaveAmplitude lowers the top surface to
	// max_y − A + A·cos(π(x − min_x)/(max_x − min_x)).
	WaveAmplitude float64

	// Hydrostatic seeds σxx = σyy = σzz = −ρ·g·depth below the surface.
	Hydrostatic bool
	Density     float64
	Gravity     float64
}

// surface returns the height of the free surface above x.
func (b Block) surface(x float64) float64 {
	if b.WaveAmplitude == 0 {
		return b.Max[1]
	}
	width := b.Max[0] - b.Min[0]
	return b.Max[1] - b.WaveAmplitude + b.WaveAmplitude*math.Cos(math.Pi*(x-b.Min[0])/width)
}

func (b Block) validate() error {
	if !(b.Spacing[0] > 0 && b.Spacing[1] > 0) {
		return fmt.Errorf("%w: spacing %v", ErrInvalidBlock, b.Spacing)
	}
	if !(b.Max[0] > b.Min[0] && b.Max[1] > b.Min[1]) {
		return fmt.Errorf("%w: empty extent %v..%v", ErrInvalidBlock, b.Min, b.Max)
	}
	if b.Hydrostatic && !(b.Density > 0) {
		return fmt.Errorf("%w: hydrostatic block needs a density", ErrInvalidBlock)
	}
	return nil
}

// Particles generates the records of every block, numbering them from
// firstID column by column.
func Particles(blocks []Block, firstID int) ([]particle.Record, error) {
	var recs []particle.Record
	id := firstID
	for bi, b := range blocks {
		if err := b.validate(); err != nil {
			return nil, fmt.Errorf("block %d: %w", bi, err)
		}
		nx := int(math.Round((b.Max[0] - b.Min[0]) / b.Spacing[0]))
		ny := int(math.Round((b.Max[1] - b.Min[1]) / b.Spacing[1]))
		for i := 0; i < nx; i++ {
			x := b.Min[0] + (float64(i)+0.5)*b.Spacing[0]
			top := b.surface(x)
			for j := 0; j < ny; j++ {
				y := b.Min[1] + (float64(j)+0.5)*b.Spacing[1]
				if y >= top {
					continue
				}
				r := particle.Record{
					ID:       id,
					Material: b.Material,
					Coord:    tensor.Vec{x, y},
					Spacing:  b.Spacing,
					Velocity: b.Velocity,
				}
				if b.Hydrostatic {
					s := -b.Density * b.Gravity * (top - y)
					r.Stress = tensor.Voigt{s, s, s, 0, 0, 0}
				}
				recs = append(recs, r)
				id++
			}
		}
	}
	return recs, nil
}
