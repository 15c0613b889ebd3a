package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

var points = []particle.Snapshot{
	{ID: 1, Coord: tensor.Vec{0.25, 0.25}, Pressure: 10, Density: 1000},
	{ID: 2, Coord: tensor.Vec{0.75, 0.25}, Pressure: 30, Density: 1000, Velocity: tensor.Vec{3, 4}},
}

func TestParticlesToSVG(t *testing.T) {
	svg := ParticlesToSVG(points, tensor.Vec{0, 0}, tensor.Vec{1, 0.5}, 200, FieldPressure)

	if !strings.Contains(svg, `width="200" height="100"`) {
		t.Error("expected aspect ratio of the domain")
	}
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 circles, got %d", got)
	}
	if !strings.Contains(svg, ramp(0)) || !strings.Contains(svg, ramp(1)) {
		t.Error("expected both ends of the colour ramp")
	}
	if !strings.Contains(svg, `cx="50.0" cy="50.0"`) {
		t.Error("expected first point at (50, 50) with y flipped")
	}
}

func TestParticlesToSVG_Degenerate(t *testing.T) {
	if svg := ParticlesToSVG(points, tensor.Vec{0, 0}, tensor.Vec{0, 1}, 200, FieldSpeed); svg != "" {
		t.Error("expected empty output for an empty domain")
	}
}

func TestRamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "#2166ac"},
		{1, "#b2182b"},
		{-3, "#2166ac"},
		{7, "#b2182b"},
	}
	for _, tt := range tests {
		if got := ramp(tt.in); got != tt.want {
			t.Errorf("ramp(%g) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSeriesToSVG(t *testing.T) {
	svg := SeriesToSVG([]float64{0, 1, 2}, []float64{1, 4, 9}, 100, 50, "#00ff00")
	if !strings.Contains(svg, `stroke="#00ff00"`) {
		t.Error("expected stroke colour")
	}
	if strings.Count(svg, " L") != 2 {
		t.Error("expected two line segments")
	}
	if SeriesToSVG([]float64{0}, []float64{1}, 100, 50, "#fff") != "" {
		t.Error("expected empty output for a single point")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	data := NewExportData("run_1", 20, 0.5, points)
	if err := WriteJSON(&buf, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Time != 10 {
		t.Errorf("expected time 10, got %g", got.Time)
	}
	if len(got.Particles) != 2 || got.Particles[1].Velocity != [2]float64{3, 4} {
		t.Errorf("unexpected particles %+v", got.Particles)
	}
}
