// Package analysis post-processes the scalar histories of a run.
//
// [Spectrum] returns the one-sided amplitude spectrum of a uniformly
// sampled series and [DominantFrequency] the frequency of its largest
// non-zero peak. For a standing wave the kinetic energy oscillates at twice
// the frequency of the wave itself:
//
//	f, err := analysis.DominantFrequency(energy, dt)
//	period := 2 / f
package analysis
