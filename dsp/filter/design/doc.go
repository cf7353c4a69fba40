// Package design computes biquad coefficients: RBJ lowpass, highpass, bell
// and shelving sections plus Butterworth cascades.
package design
