package input

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Read loads a deck directory. traction.dat and presCon.dat may be absent.
func Read(dir string) (*Deck, error) {
	d := &Deck{}
	steps := []struct {
		name     string
		optional bool
		read     func(*lines) error
	}{
		{NodeFile, false, d.readNodes},
		{ElementFile, false, d.readElements},
		{VelocityFile, true, d.readVelocityConstraints},
		{ParticleFile, false, d.readParticles},
		{StressFile, true, d.readStresses},
		{TractionFile, true, d.readTractions},
		{PressureFile, true, d.readPressureConstraints},
	}
	for _, st := range steps {
		l, closeFn, err := openLines(dir, st.name)
		if err != nil {
			if st.optional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read deck: %w", err)
		}
		err = st.read(l)
		closeFn()
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// maxPrealloc caps the capacity reserved from a count header; the rest grows
// as lines are actually read.
const maxPrealloc = 1 << 16

func (l *lines) count() (int, error) {
	c, err := l.ints(1)
	if err != nil {
		return 0, err
	}
	if c[0] < 0 {
		return 0, l.errorf("negative count %d", c[0])
	}
	return c[0], nil
}

func (d *Deck) readNodes(l *lines) error {
	n, err := l.count()
	if err != nil {
		return err
	}
	d.Nodes = make([]grid.NodeRecord, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		v, err := l.floats(tensor.Dim)
		if err != nil {
			return err
		}
		d.Nodes = append(d.Nodes, grid.NodeRecord{ID: i, Coord: tensor.Vec{v[0], v[1]}})
	}
	return nil
}

func (d *Deck) readElements(l *lines) error {
	n, err := l.count()
	if err != nil {
		return err
	}
	d.Elements = make([]grid.ElementRecord, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		v, err := l.ints(tensor.NumNodes)
		if err != nil {
			return err
		}
		d.Elements = append(d.Elements, grid.ElementRecord{ID: i, Nodes: [tensor.NumNodes]int{v[0], v[1], v[2], v[3]}})
	}
	return nil
}

func (d *Deck) readVelocityConstraints(l *lines) error {
	n, err := l.count()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		v, err := l.floats(3)
		if err != nil {
			return err
		}
		node, axis := int(v[0]), int(v[1])
		if axis < 0 || axis >= tensor.Dim {
			return l.errorf("axis %d out of range", axis)
		}
		d.VelocityConstraints = append(d.VelocityConstraints, grid.VelocityConstraint{Node: node, Axis: axis, Value: v[2]})
	}
	return nil
}

func (d *Deck) readPressureConstraints(l *lines) error {
	n, err := l.count()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		v, err := l.floats(2)
		if err != nil {
			return err
		}
		d.PressureConstraints = append(d.PressureConstraints, grid.PressureConstraint{Node: int(v[0]), Value: v[1]})
	}
	return nil
}

// readParticles reads blocks until the end of the file. Particle ids run
// on across blocks.
func (d *Deck) readParticles(l *lines) error {
	for {
		head, err := l.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(head) < 2 {
			return l.errorf("want \"count material\"")
		}
		var n, mat int
		if _, err := fmt.Sscan(head[0], &n); err != nil || n < 0 {
			return l.errorf("bad particle count %q", head[0])
		}
		if _, err := fmt.Sscan(head[1], &mat); err != nil {
			return l.errorf("bad material id %q", head[1])
		}
		sp, err := l.floats(tensor.Dim)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			v, err := l.floats(tensor.Dim)
			if err != nil {
				return err
			}
			d.Particles = append(d.Particles, particle.Record{
				ID:       len(d.Particles),
				Material: mat,
				Coord:    tensor.Vec{v[0], v[1]},
				Spacing:  tensor.Vec{sp[0], sp[1]},
			})
		}
	}
}

// particleAt resolves a particle index from a per-particle file.
func (d *Deck) particleAt(l *lines, idx int) (*particle.Record, error) {
	if idx < 0 || idx >= len(d.Particles) {
		return nil, l.errorf("particle index %d out of range", idx)
	}
	return &d.Particles[idx], nil
}

func (d *Deck) readStresses(l *lines) error {
	n, err := l.count()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		v, err := l.floats(7)
		if err != nil {
			return err
		}
		p, err := d.particleAt(l, int(v[0]))
		if err != nil {
			return err
		}
		copy(p.Stress[:], v[1:7])
	}
	return nil
}

func (d *Deck) readTractions(l *lines) error {
	n, err := l.count()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		v, err := l.floats(3)
		if err != nil {
			return err
		}
		p, err := d.particleAt(l, int(v[0]))
		if err != nil {
			return err
		}
		p.Traction = tensor.Vec{v[1], v[2]}
	}
	return nil
}
