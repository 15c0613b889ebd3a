// Package solver drives the explicit material point method.
//
// A [Solver] owns the background grid and the material point set and
// advances them one step at a time. Each step is a fixed sequence of
// [Phase] values; every phase completes for all points before the next
// starts. Scatter phases accumulate into per-worker grid buffers which are
// merged before any node reads them.
//
// # Example
//
//	s, err := solver.New(cfg, g, points, solver.WithWriter(store))
//	if err != nil {
//		return err
//	}
//	result, err := s.Run(ctx)
//
// A domain exit or a non-finite state ends the run with a [*StepError]
// wrapping the cause.
package solver
