package input

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Write stores d as a deck in dir, creating the directory if needed.
// Node and particle ids are not stored: the deck numbers both in file
// order, so references are rewritten to positions.
func Write(dir string, d *Deck) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	d, err := d.positional()
	if err != nil {
		return err
	}

	files := []struct {
		name string
		skip bool
		body func(w *bufio.Writer)
	}{
		{NodeFile, false, d.writeNodes},
		{ElementFile, false, d.writeElements},
		{VelocityFile, false, d.writeVelocityConstraints},
		{ParticleFile, false, d.writeParticles},
		{StressFile, false, d.writeStresses},
		{TractionFile, !d.hasTraction(), d.writeTractions},
		{PressureFile, len(d.PressureConstraints) == 0, d.writePressureConstraints},
	}
	for _, f := range files {
		if f.skip {
			continue
		}
		if err := writeFile(filepath.Join(dir, f.name), f.body); err != nil {
			return err
		}
	}
	return nil
}

// positional returns a copy of d whose node references are line indices.
func (d *Deck) positional() (*Deck, error) {
	index := make(map[int]int, len(d.Nodes))
	for i, n := range d.Nodes {
		index[n.ID] = i
	}
	lookup := func(id int) (int, error) {
		i, ok := index[id]
		if !ok {
			return 0, fmt.Errorf("write deck: unknown node id %d", id)
		}
		return i, nil
	}

	out := &Deck{
		Nodes:               d.Nodes,
		Elements:            make([]grid.ElementRecord, len(d.Elements)),
		VelocityConstraints: make([]grid.VelocityConstraint, len(d.VelocityConstraints)),
		PressureConstraints: make([]grid.PressureConstraint, len(d.PressureConstraints)),
		Particles:           d.Particles,
	}
	var err error
	for i, e := range d.Elements {
		out.Elements[i] = grid.ElementRecord{ID: i}
		for k, id := range e.Nodes {
			if out.Elements[i].Nodes[k], err = lookup(id); err != nil {
				return nil, err
			}
		}
	}
	for i, c := range d.VelocityConstraints {
		out.VelocityConstraints[i] = c
		if out.VelocityConstraints[i].Node, err = lookup(c.Node); err != nil {
			return nil, err
		}
	}
	for i, c := range d.PressureConstraints {
		out.PressureConstraints[i] = c
		if out.PressureConstraints[i].Node, err = lookup(c.Node); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeFile(path string, body func(w *bufio.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	body(w)
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func row(w *bufio.Writer, vals ...string) {
	w.WriteString(strings.Join(vals, "\t"))
	w.WriteByte('\n')
}

func (d *Deck) writeNodes(w *bufio.Writer) {
	row(w, strconv.Itoa(len(d.Nodes)))
	for _, n := range d.Nodes {
		row(w, num(n.Coord[0]), num(n.Coord[1]), "0")
	}
}

func (d *Deck) writeElements(w *bufio.Writer) {
	row(w, strconv.Itoa(len(d.Elements)))
	for _, e := range d.Elements {
		ids := make([]string, len(e.Nodes))
		for i, n := range e.Nodes {
			ids[i] = strconv.Itoa(n)
		}
		row(w, ids...)
	}
}

func (d *Deck) writeVelocityConstraints(w *bufio.Writer) {
	row(w, strconv.Itoa(len(d.VelocityConstraints)), "0")
	for _, c := range d.VelocityConstraints {
		row(w, strconv.Itoa(c.Node), strconv.Itoa(c.Axis), num(c.Value))
	}
}

func (d *Deck) writePressureConstraints(w *bufio.Writer) {
	row(w, strconv.Itoa(len(d.PressureConstraints)))
	for _, c := range d.PressureConstraints {
		row(w, strconv.Itoa(c.Node), num(c.Value))
	}
}

// writeParticles emits one block per run of records sharing material and
// spacing.
func (d *Deck) writeParticles(w *bufio.Writer) {
	ps := d.Particles
	for start := 0; start < len(ps); {
		end := start + 1
		for end < len(ps) && sameBlock(ps[start], ps[end]) {
			end++
		}
		row(w, strconv.Itoa(end-start), strconv.Itoa(ps[start].Material))
		row(w, num(ps[start].Spacing[0]), num(ps[start].Spacing[1]))
		for _, p := range ps[start:end] {
			row(w, num(p.Coord[0]), num(p.Coord[1]))
		}
		start = end
	}
}

func sameBlock(a, b particle.Record) bool {
	return a.Material == b.Material && a.Spacing == b.Spacing
}

func (d *Deck) writeStresses(w *bufio.Writer) {
	row(w, strconv.Itoa(len(d.Particles)))
	for i, p := range d.Particles {
		vals := []string{strconv.Itoa(i)}
		for _, s := range p.Stress {
			vals = append(vals, num(s))
		}
		row(w, vals...)
	}
}

func (d *Deck) hasTraction() bool {
	for _, p := range d.Particles {
		if p.Traction != (tensor.Vec{}) {
			return true
		}
	}
	return false
}

func (d *Deck) writeTractions(w *bufio.Writer) {
	var idx []int
	for i, p := range d.Particles {
		if p.Traction != (tensor.Vec{}) {
			idx = append(idx, i)
		}
	}
	row(w, strconv.Itoa(len(idx)))
	for _, i := range idx {
		t := d.Particles[i].Traction
		row(w, strconv.Itoa(i), num(t[0]), num(t[1]))
	}
}
