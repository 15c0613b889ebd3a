// Package input reads and writes the whitespace-separated .dat decks that
// describe a mesh, its constraints and the initial particles.
//
// A deck directory holds:
//
//	node.dat        count, then "x y z" per node (ids are line order)
//	element.dat     count, then four node ids per element
//	velCon.dat      "count 0", then "node axis value"
//	particles.dat   blocks of "count material", "dx dy", then "x y" lines
//	initStress.dat  count, then "index sxx syy szz sxy syz szx"
//	traction.dat    optional; count, then "index tx ty"
//	presCon.dat     optional; count, then "node value"
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/particle"
)

const (
	NodeFile     = "node.dat"
	ElementFile  = "element.dat"
	VelocityFile = "velCon.dat"
	ParticleFile = "particles.dat"
	StressFile   = "initStress.dat"
	TractionFile = "traction.dat"
	PressureFile = "presCon.dat"
)

// ErrMalformed indicates a deck line that does not parse.
var ErrMalformed = errors.New("input: malformed deck")

// Deck is everything a loader supplies to the solver core.
type Deck struct {
	Nodes               []grid.NodeRecord
	Elements            []grid.ElementRecord
	VelocityConstraints []grid.VelocityConstraint
	PressureConstraints []grid.PressureConstraint
	Particles           []particle.Record
}

// lines yields the non-empty lines of a file as fields.
type lines struct {
	name string
	sc   *bufio.Scanner
	n    int
}

func newLines(name string, r io.Reader) *lines {
	return &lines{name: name, sc: bufio.NewScanner(r)}
}

// next returns the fields of the next non-blank line, or io.EOF.
func (l *lines) next() ([]string, error) {
	for l.sc.Scan() {
		l.n++
		f := strings.Fields(l.sc.Text())
		if len(f) > 0 {
			return f, nil
		}
	}
	if err := l.sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", l.name, err)
	}
	return nil, io.EOF
}

func (l *lines) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s:%d: %s", ErrMalformed, l.name, l.n, fmt.Sprintf(format, args...))
}

// floats reads the next line as at least n numbers.
func (l *lines) floats(n int) ([]float64, error) {
	f, err := l.next()
	if err == io.EOF {
		return nil, l.errorf("unexpected end of file")
	}
	if err != nil {
		return nil, err
	}
	if len(f) < n {
		return nil, l.errorf("want %d values, got %d", n, len(f))
	}
	out := make([]float64, len(f))
	for i, s := range f {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, l.errorf("%q is not a number", s)
		}
		out[i] = v
	}
	return out, nil
}

func (l *lines) ints(n int) ([]int, error) {
	fs, err := l.floats(n)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fs))
	for i, v := range fs {
		out[i] = int(v)
		if float64(out[i]) != v {
			return nil, l.errorf("%g is not an integer", v)
		}
	}
	return out, nil
}

func openLines(dir, name string) (*lines, func() error, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, err
	}
	return newLines(name, f), f.Close, nil
}
