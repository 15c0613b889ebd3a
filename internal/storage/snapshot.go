package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/mpmsim/internal/particle"
)

var snapshotHeader = []string{
	"id", "x", "y", "vx", "vy", "pressure", "density",
	"sxx", "syy", "szz", "sxy", "syz", "szx",
	"exx", "eyy", "gxy", "s1", "s2",
}

// WriteSnapshotCSV writes one row per point under a fixed header.
func WriteSnapshotCSV(w io.Writer, points []particle.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return err
	}
	row := make([]string, len(snapshotHeader))
	for _, p := range points {
		vals := []float64{
			p.Coord[0], p.Coord[1], p.Velocity[0], p.Velocity[1], p.Pressure, p.Density,
			p.Stress[0], p.Stress[1], p.Stress[2], p.Stress[3], p.Stress[4], p.Stress[5],
			p.Strain[0], p.Strain[1], p.Strain[2], p.Principal[0], p.Principal[1],
		}
		row[0] = strconv.Itoa(p.ID)
		for i, v := range vals {
			row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSnapshotCSV parses the output of WriteSnapshotCSV.
func ReadSnapshotCSV(r io.Reader) ([]particle.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(snapshotHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("snapshot: missing header")
	}

	out := make([]particle.Snapshot, 0, len(records)-1)
	for line, rec := range records[1:] {
		id, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("snapshot row %d: %w", line+1, err)
		}
		var v [17]float64
		for i := range v {
			v[i], err = strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("snapshot row %d column %s: %w", line+1, snapshotHeader[i+1], err)
			}
		}
		var s particle.Snapshot
		s.ID = id
		s.Coord[0], s.Coord[1] = v[0], v[1]
		s.Velocity[0], s.Velocity[1] = v[2], v[3]
		s.Pressure, s.Density = v[4], v[5]
		copy(s.Stress[:], v[6:12])
		copy(s.Strain[:], v[12:15])
		s.Principal[0], s.Principal[1] = v[15], v[16]
		out = append(out, s)
	}
	return out, nil
}
