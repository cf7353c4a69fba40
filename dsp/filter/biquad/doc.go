// Package biquad runs second-order IIR sections in transposed direct form II.
//
// Coefficients come from dsp/filter/design. A [Section] holds one set of
// coefficients with its two state words, and a [Chain] cascades sections
// for shelving networks and higher-order filters.
package biquad
