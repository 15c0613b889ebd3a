package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Field selects the particle quantity used for colouring.
type Field string

const (
	FieldPressure Field = "pressure"
	FieldSpeed    Field = "speed"
	FieldDensity  Field = "density"
)

func (f Field) value(p particle.Snapshot) float64 {
	switch f {
	case FieldSpeed:
		return p.Velocity.Norm()
	case FieldDensity:
		return p.Density
	default:
		return p.Pressure
	}
}

// ramp maps t in [0, 1] from blue to red.
func ramp(t float64) string {
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))
	lo := [3]float64{33, 102, 172}
	hi := [3]float64{178, 24, 43}
	var c [3]int
	for i := range c {
		c[i] = int(math.Round(lo[i] + t*(hi[i]-lo[i])))
	}
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// ParticlesToSVG draws every point as a disc inside the domain box lo..hi,
// coloured by field over its range in the snapshot.
func ParticlesToSVG(points []particle.Snapshot, lo, hi tensor.Vec, width int, field Field) string {
	rangeX := hi[0] - lo[0]
	rangeY := hi[1] - lo[1]
	if rangeX <= 0 || rangeY <= 0 || width <= 0 {
		return ""
	}
	height := int(math.Round(float64(width) * rangeY / rangeX))
	scale := float64(width) / rangeX

	vmin, vmax := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		v := field.value(p)
		vmin = math.Min(vmin, v)
		vmax = math.Max(vmax, v)
	}
	span := vmax - vmin
	if span == 0 {
		span = 1
	}

	radius := math.Max(1, 0.4*float64(width)/math.Sqrt(float64(len(points)+1)))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g stroke="none">
`, width, height, width, height))

	for _, p := range points {
		x := (p.Coord[0] - lo[0]) * scale
		y := float64(height) - (p.Coord[1]-lo[1])*scale
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, x, y, radius, ramp((field.value(p)-vmin)/span)))
	}

	sb.WriteString(fmt.Sprintf(`</g>
<text x="4" y="14" fill="#cccccc" font-family="monospace" font-size="12">%s %.4g .. %.4g</text>
</svg>`, field, vmin, vmax))
	return sb.String()
}

// SeriesToSVG plots ys against xs as a single polyline.
func SeriesToSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 0; i < n; i++ {
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i := 0; i < n; i++ {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
