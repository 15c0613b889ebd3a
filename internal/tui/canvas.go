package tui

import (
	"strings"

	"github.com/san-kum/mpmsim/internal/tensor"
)

// Braille patterns pack 2x4 dots per cell:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBase = 0x2800

// Canvas is a Braille raster of Width x Height cells, that is
// 2*Width x 4*Height dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y); out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBase
		}
	}
}

// Plot maps world coordinates in the box lo..hi onto the canvas, with y up.
func (c *Canvas) Plot(coords []tensor.Vec, lo, hi tensor.Vec) {
	if !(hi[0] > lo[0] && hi[1] > lo[1]) {
		return
	}
	dotsX, dotsY := 2*c.Width, 4*c.Height
	sx := float64(dotsX-1) / (hi[0] - lo[0])
	sy := float64(dotsY-1) / (hi[1] - lo[1])
	for _, x := range coords {
		px := int((x[0] - lo[0]) * sx)
		py := dotsY - 1 - int((x[1]-lo[1])*sy)
		c.Set(px, py)
	}
}

func (c *Canvas) String() string {
	var sb strings.Builder
	for i, row := range c.Grid {
		sb.WriteString(string(row))
		if i < len(c.Grid)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
