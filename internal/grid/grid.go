// Package grid implements the fixed Eulerian background mesh of the
// material point method: nodes that accumulate particle quantities and
// solve the momentum equation every step, and axis-aligned quadrilateral
// elements used to locate material points.
//
// Nodes and elements live in arenas and refer to each other by index. The
// topology is immutable after [New]; per-step state is cleared by
// [Grid.InitialiseStep].
package grid

import (
	"fmt"
	"sort"

	"github.com/san-kum/mpmsim/internal/tensor"
)

// walkDepth bounds the neighbour search around the previous host element
// before falling back to a full scan.
const walkDepth = 3

type NodeRecord struct {
	ID    int
	Coord tensor.Vec
}

// ElementRecord lists node ids in any order. Neighbours holds element ids;
// when empty, adjacency is derived from shared nodes.
type ElementRecord struct {
	ID         int
	Nodes      [tensor.NumNodes]int
	Neighbours []int
}

type VelocityConstraint struct {
	Node  int
	Axis  int
	Value float64
}

type PressureConstraint struct {
	Node  int
	Value float64
}

// Locatable is a point the grid can place in an element.
type Locatable interface {
	PointID() int
	Position() tensor.Vec
	HostElement() int
	BindHost(element int, nodes [tensor.NumNodes]int)
}

type Grid struct {
	Nodes    []Node
	Elements []Element

	nodeIndex map[int]int
	elemIndex map[int]int
}

// New builds the grid from loader records.
func New(nodes []NodeRecord, elements []ElementRecord) (*Grid, error) {
	g := &Grid{
		Nodes:     make([]Node, len(nodes)),
		Elements:  make([]Element, len(elements)),
		nodeIndex: make(map[int]int, len(nodes)),
		elemIndex: make(map[int]int, len(elements)),
	}

	for i, r := range nodes {
		if _, dup := g.nodeIndex[r.ID]; dup {
			return nil, fmt.Errorf("%w: node %d", ErrDuplicateID, r.ID)
		}
		g.nodeIndex[r.ID] = i
		g.Nodes[i] = Node{ID: r.ID, Coord: r.Coord}
	}

	for i, r := range elements {
		if _, dup := g.elemIndex[r.ID]; dup {
			return nil, fmt.Errorf("%w: element %d", ErrDuplicateID, r.ID)
		}
		g.elemIndex[r.ID] = i
		e := &g.Elements[i]
		e.ID = r.ID
		for k, nid := range r.Nodes {
			ni, ok := g.nodeIndex[nid]
			if !ok {
				return nil, fmt.Errorf("%w: %d in element %d", ErrUnknownNode, nid, r.ID)
			}
			e.Nodes[k] = ni
		}
		if err := e.computeGeometry(g.Nodes); err != nil {
			return nil, err
		}
	}

	for i, r := range elements {
		if len(r.Neighbours) == 0 {
			continue
		}
		nb := make([]int, 0, len(r.Neighbours))
		for _, eid := range r.Neighbours {
			ei, ok := g.elemIndex[eid]
			if !ok {
				return nil, fmt.Errorf("%w: neighbour %d of element %d", ErrUnknownElement, eid, r.ID)
			}
			nb = append(nb, ei)
		}
		g.Elements[i].Neighbours = nb
	}
	g.deriveAdjacency()

	return g, nil
}

// deriveAdjacency links elements sharing at least one node, for elements
// whose record carried no neighbour list.
func (g *Grid) deriveAdjacency() {
	byNode := make([][]int, len(g.Nodes))
	for ei := range g.Elements {
		for _, ni := range g.Elements[ei].Nodes {
			byNode[ni] = append(byNode[ni], ei)
		}
	}
	for ei := range g.Elements {
		e := &g.Elements[ei]
		if len(e.Neighbours) > 0 {
			continue
		}
		set := make(map[int]struct{})
		for _, ni := range e.Nodes {
			for _, other := range byNode[ni] {
				if other != ei {
					set[other] = struct{}{}
				}
			}
		}
		e.Neighbours = make([]int, 0, len(set))
		for other := range set {
			e.Neighbours = append(e.Neighbours, other)
		}
		sort.Ints(e.Neighbours)
	}
}

// NodeIndex resolves a node id.
func (g *Grid) NodeIndex(id int) (int, bool) {
	i, ok := g.nodeIndex[id]
	return i, ok
}

// ElementIndex resolves an element id.
func (g *Grid) ElementIndex(id int) (int, bool) {
	i, ok := g.elemIndex[id]
	return i, ok
}

func (g *Grid) SetVelocityConstraints(cons []VelocityConstraint) error {
	for _, c := range cons {
		ni, ok := g.nodeIndex[c.Node]
		if !ok {
			return fmt.Errorf("%w: %d in velocity constraint", ErrUnknownNode, c.Node)
		}
		if c.Axis < 0 || c.Axis >= tensor.Dim {
			return fmt.Errorf("%w: node %d axis %d", ErrInvalidAxis, c.Node, c.Axis)
		}
		g.Nodes[ni].SetVelocityConstraint(c.Axis, c.Value)
	}
	return nil
}

func (g *Grid) SetPressureConstraints(cons []PressureConstraint) error {
	for _, c := range cons {
		ni, ok := g.nodeIndex[c.Node]
		if !ok {
			return fmt.Errorf("%w: %d in pressure constraint", ErrUnknownNode, c.Node)
		}
		g.Nodes[ni].SetPressureConstraint(c.Value)
	}
	return nil
}

// InitialiseStep clears every nodal accumulator and resident count.
func (g *Grid) InitialiseStep() {
	for i := range g.Nodes {
		g.Nodes[i].Reset()
	}
	for i := range g.Elements {
		g.Elements[i].Particles = 0
	}
}

// Find returns the index of an element containing x. The search starts at
// hint (the previous host, or -1), walks the adjacency rings around it and
// falls back to a scan of every element. Find only reads the grid and is
// safe to call concurrently.
func (g *Grid) Find(x tensor.Vec, hint int) (int, bool) {
	if hint >= 0 && hint < len(g.Elements) {
		if g.Elements[hint].Contains(x) {
			return hint, true
		}
		if ei, ok := g.walk(x, hint); ok {
			return ei, true
		}
	}
	for ei := range g.Elements {
		if g.Elements[ei].Contains(x) {
			return ei, true
		}
	}
	return -1, false
}

func (g *Grid) walk(x tensor.Vec, start int) (int, bool) {
	visited := map[int]bool{start: true}
	frontier := []int{start}
	for depth := 0; depth < walkDepth && len(frontier) > 0; depth++ {
		var next []int
		for _, ei := range frontier {
			for _, nb := range g.Elements[ei].Neighbours {
				if visited[nb] {
					continue
				}
				if g.Elements[nb].Contains(x) {
					return nb, true
				}
				visited[nb] = true
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return -1, false
}

// Bind counts a resident point in element ei and returns its node indices.
func (g *Grid) Bind(ei int) [tensor.NumNodes]int {
	e := &g.Elements[ei]
	e.Particles++
	return e.Nodes
}

// Locate finds the host of p and rebinds it. A point outside every element
// is fatal for the run.
func (g *Grid) Locate(p Locatable) error {
	x := p.Position()
	ei, ok := g.Find(x, p.HostElement())
	if !ok {
		return fmt.Errorf("%w: point %d at (%g, %g)", ErrOutsideDomain, p.PointID(), x[0], x[1])
	}
	p.BindHost(ei, g.Bind(ei))
	return nil
}

// Apply reduces a merged accumulator into the node fields.
func (g *Grid) Apply(a *Accumulator) {
	for ni := range g.Nodes {
		n := &g.Nodes[ni]
		switch a.layout {
		case LayoutMassMomentum:
			n.Mass += a.Get(ni, SlotMass)
			n.Volume += a.Get(ni, SlotVolume)
			n.Momentum = n.Momentum.Add(a.vec(ni, SlotMomentum))
		case LayoutForces:
			n.ExtForce = n.ExtForce.Add(a.vec(ni, SlotExtForce))
			n.IntForce = n.IntForce.Sub(a.vec(ni, SlotIntForce))
		case LayoutVolStrainRate:
			n.VolStrainRate += a.Get(ni, SlotScalar)
		case LayoutEndMomentum:
			n.EndMomentum = n.EndMomentum.Add(a.vec(ni, 0))
		case LayoutPressure:
			n.Pressure += a.Get(ni, SlotScalar)
		}
	}
}

// ComputeNodalVelocities gathers velocity from momentum on every node.
func (g *Grid) ComputeNodalVelocities(tol float64) {
	for i := range g.Nodes {
		g.Nodes[i].ComputeVelocity(tol)
	}
}

// ComputeNodalVelocitiesFromEndMomentum is the MUSL counterpart of
// ComputeNodalVelocities.
func (g *Grid) ComputeNodalVelocitiesFromEndMomentum(tol float64) {
	for i := range g.Nodes {
		g.Nodes[i].ComputeVelocityFromEndMomentum(tol)
	}
}

// Solve integrates every node over dt.
func (g *Grid) Solve(dt, tol float64, gravity tensor.Vec, gravityAtNodes bool) {
	for i := range g.Nodes {
		g.Nodes[i].Solve(dt, tol, gravity, gravityAtNodes)
	}
}

// ResidentParticles returns the total resident count over all elements.
func (g *Grid) ResidentParticles() int {
	total := 0
	for i := range g.Elements {
		total += g.Elements[i].Particles
	}
	return total
}
