// Package compute runs the particle phases of a step across CPU workers.
//
// Particle-local phases use [Backend.For]: each worker owns a contiguous
// range of material points and writes only to them. Scatter phases use
// [Backend.Scatter]: each worker accumulates into a private grid buffer
// and the buffers are merged in worker order once every worker has
// finished, so the merged result does not depend on goroutine scheduling.
//
//	be := compute.NewCPUBackend(0, compute.DefaultMinChunk)
//	acc, err := be.Scatter(ctx, len(points), grid.LayoutMassMomentum, len(g.Nodes),
//		func(acc *grid.Accumulator, start, end int) error {
//			for i := start; i < end; i++ {
//				points[i].MapMassMomentum(acc)
//			}
//			return nil
//		})
package compute
