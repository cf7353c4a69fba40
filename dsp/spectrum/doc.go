// Package spectrum provides a windowed-FFT Analyzer for block-rate spectral
// measurements on a real-time thread.
package spectrum
