package compute

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/mpmsim/internal/grid"
)

// DefaultMinChunk is the smallest number of points handed to one worker.
const DefaultMinChunk = 64

type CPUBackend struct {
	workers  int
	minChunk int

	// per-layout worker buffers, reused across steps
	buffers map[grid.Layout][]*grid.Accumulator
}

// NewCPUBackend uses runtime.NumCPU() workers when workers <= 0.
func NewCPUBackend(workers, minChunk int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if minChunk < 1 {
		minChunk = 1
	}
	return &CPUBackend{
		workers:  workers,
		minChunk: minChunk,
		buffers:  make(map[grid.Layout][]*grid.Accumulator),
	}
}

func (c *CPUBackend) Name() string { return "cpu" }
func (c *CPUBackend) Workers() int { return c.workers }

// split returns how many workers to use for n items.
func (c *CPUBackend) split(n int) int {
	workers := c.workers
	if n/c.minChunk < workers {
		workers = n / c.minChunk
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// run fans fn out over workers contiguous chunks of [0, n) and waits for
// all of them. The first error cancels the remaining chunks.
func (c *CPUBackend) run(ctx context.Context, n, workers int, fn func(worker, start, end int) error) error {
	if workers == 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(0, 0, n)
	}

	g, ctx := errgroup.WithContext(ctx)
	chunkSize := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(w, start, end)
		})
	}
	return g.Wait()
}

func (c *CPUBackend) For(ctx context.Context, n int, fn RangeFunc) error {
	return c.run(ctx, n, c.split(n), func(_, start, end int) error {
		return fn(start, end)
	})
}

func (c *CPUBackend) Scatter(ctx context.Context, n int, layout grid.Layout, numNodes int, fn ScatterFunc) (*grid.Accumulator, error) {
	workers := c.split(n)
	local := c.workerBuffers(layout, numNodes, workers)

	err := c.run(ctx, n, workers, func(w, start, end int) error {
		return fn(local[w], start, end)
	})
	if err != nil {
		return nil, err
	}

	for w := 1; w < workers; w++ {
		local[0].Merge(local[w])
	}
	return local[0], nil
}

func (c *CPUBackend) workerBuffers(layout grid.Layout, numNodes, workers int) []*grid.Accumulator {
	bufs := c.buffers[layout]
	if len(bufs) > 0 && bufs[0].NumNodes() != numNodes {
		bufs = nil
	}
	for len(bufs) < workers {
		bufs = append(bufs, grid.NewAccumulator(layout, numNodes))
	}
	c.buffers[layout] = bufs

	for _, b := range bufs[:workers] {
		b.Reset()
	}
	return bufs[:workers]
}
