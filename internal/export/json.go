package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/mpmsim/internal/particle"
)

type ParticleData struct {
	ID        int        `json:"id"`
	Coord     [2]float64 `json:"coord"`
	Velocity  [2]float64 `json:"velocity"`
	Pressure  float64    `json:"pressure"`
	Density   float64    `json:"density"`
	Stress    [6]float64 `json:"stress"`
	Strain    [3]float64 `json:"strain"`
	Principal [2]float64 `json:"principal"`
}

type ExportData struct {
	Run       string         `json:"run"`
	Step      int            `json:"step"`
	Dt        float64        `json:"dt"`
	Time      float64        `json:"time"`
	Particles []ParticleData `json:"particles"`
}

func NewExportData(run string, step int, dt float64, points []particle.Snapshot) ExportData {
	data := ExportData{
		Run:       run,
		Step:      step,
		Dt:        dt,
		Time:      float64(step) * dt,
		Particles: make([]ParticleData, len(points)),
	}
	for i, p := range points {
		data.Particles[i] = ParticleData{
			ID:        p.ID,
			Coord:     p.Coord,
			Velocity:  p.Velocity,
			Pressure:  p.Pressure,
			Density:   p.Density,
			Stress:    p.Stress,
			Strain:    p.Strain,
			Principal: p.Principal,
		}
	}
	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSON writes data to path, or to stdout when path is empty or "-".
func ExportJSON(path string, data ExportData) error {
	if path == "" || path == "-" {
		return WriteJSON(os.Stdout, data)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}
