// Package delay provides circular delay lines with Lagrange-table fractional
// reads and a stride-modulated read head for delay-based pitch shifting.
package delay
