// Package ir measures the decay of impulse responses.
//
// Reverberation times come from the Schroeder backward integral, with a
// least-squares line fitted over the standard ranges:
//
//   - EDT: 0 to -10 dB
//   - T20: -5 to -25 dB
//   - T30: -5 to -35 dB
//
// Envelope and EnvelopeCrossing give a direct reading instead: the RMS level
// over a sliding window and the sample where it has fallen a given number of
// decibels below its peak.
//
//	a := ir.NewAnalyzer(48000)
//	m, err := a.Analyze(response)
//	idx, err := ir.EnvelopeCrossing(response, 9600, 60)
package ir
