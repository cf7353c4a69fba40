// Package diffuse implements velvet-noise diffusers: sparse FIR filters with
// signed, exponentially decaying taps at jittered positions.
//
// A Pattern describes one impulse response. Patterns are generated from a
// PatternConfig and a deterministic random source, and their tap energy is
// always normalised to one. A Diffuser runs a pattern over a stream and
// crossfades to a new pattern when one is staged, so re-randomising the
// texture never produces a jump in the output.
package diffuse
