package compute

import (
	"context"

	"github.com/san-kum/mpmsim/internal/grid"
)

// RangeFunc processes the items in [start, end).
type RangeFunc func(start, end int) error

// ScatterFunc processes the items in [start, end) and accumulates their
// grid contributions into acc, which no other worker touches.
type ScatterFunc func(acc *grid.Accumulator, start, end int) error

type Backend interface {
	Name() string
	Workers() int
	For(ctx context.Context, n int, fn RangeFunc) error
	// Scatter returns the merged accumulator. It stays valid until the
	// next Scatter with the same layout.
	Scatter(ctx context.Context, n int, layout grid.Layout, numNodes int, fn ScatterFunc) (*grid.Accumulator, error)
}
